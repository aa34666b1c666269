package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"voxelmine.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "agent name")
		tool  = flag.String("tool", "", "pickaxe to swing (empty: server default)")
		x     = flag.Int("x", 0, "column x")
		z     = flag.Int("z", 0, "column z")
		top   = flag.Int("top", 8, "first y to dig")
		depth = flag.Int("depth", 4, "number of cells to dig downwards")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
		Tool:            *tool,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	logger.Printf("WELCOME agent_id=%s tool=%s", welcome.AgentID, welcome.Tool)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{conn: conn, log: logger}
	for y := *top; y > *top-*depth; y-- {
		select {
		case <-stop:
			return
		default:
		}
		if !b.dig([3]int{*x, y, *z}) {
			break
		}
	}
	_ = conn.WriteJSON(protocol.BaseMessage{Type: protocol.TypeBye, ProtocolVersion: protocol.Version})
}

type bot struct {
	conn *websocket.Conn
	log  *log.Logger
	seq  uint64
}

// dig strikes pos until it is destroyed and reports whether the column can
// continue.
func (b *bot) dig(pos [3]int) bool {
	for strikes := 1; strikes <= 64; strikes++ {
		b.seq++
		if err := b.conn.WriteJSON(protocol.MineMsg{
			Type:            protocol.TypeMine,
			ProtocolVersion: protocol.Version,
			Seq:             b.seq,
			Pos:             &pos,
		}); err != nil {
			b.log.Printf("send MINE: %v", err)
			return false
		}
		ack, ok := b.awaitAck(b.seq)
		if !ok {
			return false
		}
		if !ack.OK {
			b.log.Printf("pos=%v %s: %s", pos, ack.Code, ack.Message)
			return ack.Code == protocol.ErrInvalidTarget
		}
		if len(ack.Destroyed) > 0 {
			for _, d := range ack.Drops {
				b.log.Printf("destroyed %v after %d strikes: %s %s x%d", d.Pos, strikes, d.Outcome, d.Item, d.Quantity)
			}
			return true
		}
	}
	b.log.Printf("pos=%v did not break", pos)
	return false
}

// awaitAck reads until the ACK for seq, logging any EVENTS on the way.
func (b *bot) awaitAck(seq uint64) (protocol.AckMsg, bool) {
	for {
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			return protocol.AckMsg{}, false
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				continue
			}
			if ack.Seq == seq {
				return ack, true
			}
		case protocol.TypeEvents:
			var evs protocol.EventsMsg
			if err := json.Unmarshal(msg, &evs); err != nil {
				continue
			}
			for _, ev := range evs.Events {
				b.log.Printf("event %v", ev)
			}
		}
	}
}
