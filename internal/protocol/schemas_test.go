package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"voxelmine.ai/internal/protocol"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	require.NoError(t, err, name)
	return s
}

// roundTrip marshals a Go message and decodes it generically so the schema
// sees exactly what goes over the wire.
func roundTrip(t *testing.T, msg any) any {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	var v any
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		require.NoError(t, s.Validate(v))
	}

	var hello any
	require.NoError(t, json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "agent_name":"bot1",
	  "tool":"IRON_PICKAXE"
	}`), &hello))
	validate(compileSchema(t, "hello.schema.json"), hello)

	pos := [3]int{1, 2, 3}
	validate(compileSchema(t, "mine.schema.json"), roundTrip(t, protocol.MineMsg{
		Type: protocol.TypeMine, ProtocolVersion: protocol.Version, Seq: 1, Pos: &pos,
	}))
	validate(compileSchema(t, "pickup.schema.json"), roundTrip(t, protocol.PickupMsg{
		Type: protocol.TypePickup, ProtocolVersion: protocol.Version, Seq: 2, RubbleID: "R-1",
	}))

	validate(compileSchema(t, "welcome.schema.json"), roundTrip(t, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         "A1",
		SessionID:       "3f0e4c36-6f1f-4b38-a3c2-0d0c9f3e8a11",
		Tool:            "WOOD_PICKAXE",
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: "deadbeef", Count: 8},
			ItemPalette:  protocol.DigestRef{Digest: "deadbeef", Count: 9},
			ToolsDigest:  "deadbeef",
		},
	}))

	validate(compileSchema(t, "ack.schema.json"), roundTrip(t, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		Seq:             1,
		OK:              true,
		Destroyed:       [][3]int{{1, 2, 3}},
		Drops:           []protocol.DropInfo{{Pos: [3]int{1, 2, 3}, Outcome: "FORCED_DROP", Item: "STONE", Quantity: 4}},
	}))
	validate(compileSchema(t, "ack.schema.json"), roundTrip(t, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		Seq:             2,
		Code:            protocol.ErrInvalidTarget,
		Message:         "nothing to mine",
	}))

	validate(compileSchema(t, "events.schema.json"), roundTrip(t, protocol.EventsMsg{
		Type:            protocol.TypeEvents,
		ProtocolVersion: protocol.Version,
		Events:          []protocol.Event{{"type": "XP", "amount": 1.0}},
	}))
}

func TestSchemas_RejectMineWithoutTarget(t *testing.T) {
	s := compileSchema(t, "mine.schema.json")
	v := roundTrip(t, protocol.MineMsg{Type: protocol.TypeMine, ProtocolVersion: protocol.Version, Seq: 1})
	require.Error(t, s.Validate(v), "MINE without pos or rubble_id")
}
