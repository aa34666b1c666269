package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/mining"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/terrain"
	"voxelmine.ai/internal/sim/world"
)

// World is what a connection drives.
type World interface {
	Join(name, tool string) (protocol.WelcomeMsg, error)
	Leave(agentID string)
	Mine(agentID string, target model.Target) (mining.Report, error)
	PickUp(agentID, rubbleID string) (terrain.Rubble, error)
	DrainEvents(agentID string) []protocol.Event
}

type Server struct {
	world World
	log   *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	closing bool
	conns   map[*websocket.Conn]struct{}
	wg      sync.WaitGroup
}

func NewServer(w World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		conns: map[*websocket.Conn]struct{}{},
	}
	return s
}

// Close disconnects every live agent and waits for their handlers to return,
// so no strike reaches the world afterwards. Later upgrades are refused.
func (s *Server) Close() {
	s.mu.Lock()
	s.closing = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Handler serves one agent per connection. Requests are handled one at a time
// in the read loop, which keeps each agent's strikes in order.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if !s.track(conn) {
			return
		}
		defer s.untrack(conn)

		agentID := s.handshake(conn)
		if agentID == "" {
			return
		}
		s.log.Printf("join %s from %s", agentID, r.RemoteAddr)
		defer func() {
			s.world.Leave(agentID)
			s.log.Printf("leave %s", agentID)
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !s.handle(conn, agentID, msg) {
				return
			}
		}
	}
}

// handle answers one client message and reports whether the connection stays
// open.
func (s *Server) handle(conn *websocket.Conn, agentID string, msg []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return writeJSON(conn, badRequest(0, "malformed json")) == nil
	}
	if base.ProtocolVersion != protocol.Version {
		return writeJSON(conn, badRequest(0, "bad protocol_version")) == nil
	}

	var ack protocol.AckMsg
	switch base.Type {
	case protocol.TypeBye:
		return false
	case protocol.TypeMine:
		var m protocol.MineMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return writeJSON(conn, badRequest(0, err.Error())) == nil
		}
		ack = s.mine(agentID, m)
	case protocol.TypePickup:
		var m protocol.PickupMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return writeJSON(conn, badRequest(0, err.Error())) == nil
		}
		ack = s.pickup(agentID, m)
	default:
		return writeJSON(conn, badRequest(0, "unknown type "+base.Type)) == nil
	}

	if err := writeJSON(conn, ack); err != nil {
		return false
	}
	if evs := s.world.DrainEvents(agentID); len(evs) > 0 {
		if err := writeJSON(conn, protocol.EventsMsg{
			Type:            protocol.TypeEvents,
			ProtocolVersion: protocol.Version,
			Events:          evs,
		}); err != nil {
			return false
		}
	}
	return true
}

func (s *Server) mine(agentID string, m protocol.MineMsg) protocol.AckMsg {
	var target model.Target
	switch {
	case m.Pos != nil:
		target = model.BlockTarget(model.FromArray(*m.Pos))
		target.RubbleID = m.RubbleID
	case m.RubbleID != "":
		target = model.RubbleTarget(m.RubbleID)
	default:
		return badRequest(m.Seq, "pos or rubble_id required")
	}

	rep, err := s.world.Mine(agentID, target)
	ack := newAck(m.Seq, err)
	if err != nil {
		return ack
	}
	for _, p := range rep.Destroyed {
		ack.Destroyed = append(ack.Destroyed, p.ToArray())
	}
	for _, p := range rep.Damaged {
		ack.Damaged = append(ack.Damaged, p.ToArray())
	}
	for _, d := range rep.Drops {
		ack.Drops = append(ack.Drops, protocol.DropInfo{
			Pos:      d.Element.Pos.ToArray(),
			Outcome:  d.Outcome.Kind.String(),
			Item:     d.Outcome.Item,
			Quantity: d.Outcome.Quantity,
		})
	}
	ack.Broken = rep.Broken
	return ack
}

func (s *Server) pickup(agentID string, m protocol.PickupMsg) protocol.AckMsg {
	if m.RubbleID == "" {
		return badRequest(m.Seq, "rubble_id required")
	}
	_, err := s.world.PickUp(agentID, m.RubbleID)
	return newAck(m.Seq, err)
}

func newAck(seq uint64, err error) protocol.AckMsg {
	ack := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		OK:              err == nil,
	}
	if err != nil {
		ack.Code = world.Code(err)
		ack.Message = err.Error()
	}
	return ack
}

func badRequest(seq uint64, msg string) protocol.AckMsg {
	return protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		Code:            protocol.ErrProtoBadRequest,
		Message:         msg,
	}
}

func (s *Server) handshake(conn *websocket.Conn) (agentID string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return ""
	}
	if hello.AgentName == "" {
		hello.AgentName = "agent"
	}

	welcome, err := s.world.Join(hello.AgentName, hello.Tool)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), time.Now().Add(time.Second))
		return ""
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.world.Leave(welcome.AgentID)
		return ""
	}
	return welcome.AgentID
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
