package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/catalogs"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/tuning"
	"voxelmine.ai/internal/sim/world"
)

func newTestServer(t *testing.T) (*world.World, *websocket.Conn) {
	t.Helper()
	_, w, url := startServer(t)
	return w, dial(t, url)
}

func startServer(t *testing.T) (*Server, *world.World, string) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	tu := tuning.Defaults()
	w, err := world.New(world.WorldConfig{
		Seed:        1,
		DefaultTool: "WOOD_PICKAXE",
		Mining:      tu.Mining,
		Skills:      tu.Skills,
		Inventory:   tu.Inventory,
	}, cats, world.Options{})
	require.NoError(t, err)

	s := NewServer(w, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, w, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var v T
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       "bot",
	}))
	return read[protocol.WelcomeMsg](t, conn)
}

func mine(t *testing.T, conn *websocket.Conn, seq uint64, pos [3]int) protocol.AckMsg {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.MineMsg{
		Type:            protocol.TypeMine,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		Pos:             &pos,
	}))
	return read[protocol.AckMsg](t, conn)
}

func TestServer_MineOverWebsocket(t *testing.T) {
	w, conn := newTestServer(t)
	welcome := hello(t, conn)
	require.Equal(t, protocol.TypeWelcome, welcome.Type)
	require.NotEmpty(t, welcome.AgentID)
	assert.Equal(t, "WOOD_PICKAXE", welcome.Tool)

	w.Terrain().SetBlock(model.Vec3i{}, "STONE")

	ack := mine(t, conn, 1, [3]int{0, 0, 0})
	assert.True(t, ack.OK)
	assert.Equal(t, uint64(1), ack.Seq)
	assert.Equal(t, [][3]int{{0, 0, 0}}, ack.Damaged)

	ack = mine(t, conn, 2, [3]int{0, 0, 0})
	assert.True(t, ack.OK)
	assert.Equal(t, [][3]int{{0, 0, 0}}, ack.Destroyed)
	require.Len(t, ack.Drops, 1)
	assert.Equal(t, "NORMAL_DROP", ack.Drops[0].Outcome)
	assert.Equal(t, "STONE", ack.Drops[0].Item)

	evs := read[protocol.EventsMsg](t, conn)
	require.Equal(t, protocol.TypeEvents, evs.Type)
	require.Len(t, evs.Events, 2)
	assert.Equal(t, "XP", evs.Events[0]["type"])
	assert.Equal(t, "RUBBLE_CREATED", evs.Events[1]["type"])

	ack = mine(t, conn, 3, [3]int{0, 0, 0})
	assert.False(t, ack.OK)
	assert.Equal(t, protocol.ErrInvalidTarget, ack.Code)
}

func TestServer_PickupAndBadRequests(t *testing.T) {
	w, conn := newTestServer(t)
	welcome := hello(t, conn)
	ok, _ := w.Terrain().TrySpawn(welcome.AgentID, "STONE", model.Vec3i{X: 1}, 1)
	require.True(t, ok)
	piece := w.Terrain().RubbleAt(model.Vec3i{X: 1})[0]

	require.NoError(t, conn.WriteJSON(protocol.PickupMsg{
		Type:            protocol.TypePickup,
		ProtocolVersion: protocol.Version,
		Seq:             7,
		RubbleID:        piece.ID,
	}))
	ack := read[protocol.AckMsg](t, conn)
	assert.True(t, ack.OK)
	assert.Equal(t, uint64(7), ack.Seq)
	evs := read[protocol.EventsMsg](t, conn)
	assert.Equal(t, "PICKED_UP", evs.Events[0]["type"])
	assert.Equal(t, 1, w.Inventory().Count(welcome.AgentID, "STONE"))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "DANCE", "protocol_version": protocol.Version}))
	ack = read[protocol.AckMsg](t, conn)
	assert.Equal(t, protocol.ErrProtoBadRequest, ack.Code)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": protocol.TypeMine, "protocol_version": protocol.Version, "seq": 9}))
	ack = read[protocol.AckMsg](t, conn)
	assert.Equal(t, protocol.ErrProtoBadRequest, ack.Code)
	assert.Equal(t, uint64(9), ack.Seq)
}

func TestServer_ByeEndsSession(t *testing.T) {
	w, conn := newTestServer(t)
	hello(t, conn)
	require.Equal(t, 1, w.Sessions().Len())

	require.NoError(t, conn.WriteJSON(protocol.BaseMessage{Type: protocol.TypeBye, ProtocolVersion: protocol.Version}))
	assert.Eventually(t, func() bool { return w.Sessions().Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_RejectsBadHello(t *testing.T) {
	_, conn := newTestServer(t)
	require.NoError(t, conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1", AgentName: "old"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestServer_CloseDisconnectsAgents(t *testing.T) {
	s, w, url := startServer(t)
	a, b := dial(t, url), dial(t, url)
	hello(t, a)
	hello(t, b)
	require.Equal(t, 2, w.Sessions().Len())

	s.Close()
	// Every handler has returned, so both agents already left.
	assert.Zero(t, w.Sessions().Len())

	require.NoError(t, a.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := a.ReadMessage()
	assert.Error(t, err)

	late := dial(t, url)
	_ = late.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: "late"})
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, w.Sessions().Len())
}
