package world

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmine.ai/internal/observability/metrics"
	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/catalogs"
	"voxelmine.ai/internal/sim/mining"
	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/terrain"
	"voxelmine.ai/internal/sim/tuning"
)

type auditRecorder struct{ entries []model.AuditEntry }

func (r *auditRecorder) WriteAudit(e model.AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRecorder) actions() []string {
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type harness struct {
	w     *World
	audit *auditRecorder
}

// newWorld builds a world from the shipped catalogs with a flat strike damage
// equal to the tool's base damage.
func newWorld(t *testing.T, mutate func(*WorldConfig), opts ...func(*Options)) harness {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)

	tu := tuning.Defaults()
	cfg := WorldConfig{
		Seed:        1,
		DefaultTool: "WOOD_PICKAXE",
		Mining:      tu.Mining,
		Skills:      tu.Skills,
		Inventory:   tu.Inventory,
	}
	cfg.Skills.PerkDamagePerLevel = 0
	if mutate != nil {
		mutate(&cfg)
	}

	rec := &auditRecorder{}
	o := Options{Audit: []AuditWriter{rec}}
	for _, f := range opts {
		f(&o)
	}
	w, err := New(cfg, cats, o)
	require.NoError(t, err)
	return harness{w: w, audit: rec}
}

func (h harness) join(t *testing.T, tool string) string {
	t.Helper()
	welcome, err := h.w.Join("bot", tool)
	require.NoError(t, err)
	return welcome.AgentID
}

func (h harness) hits(t *testing.T, agentID string) int {
	t.Helper()
	s, ok := h.w.Sessions().Get(agentID)
	require.True(t, ok)
	return s.Hits.Len()
}

func eventTypes(evs []protocol.Event) []string {
	var out []string
	for _, ev := range evs {
		out = append(out, ev["type"].(string))
	}
	return out
}

var origin = model.Vec3i{}

func TestJoinWelcome(t *testing.T) {
	h := newWorld(t, nil)

	w1, err := h.w.Join("first", "")
	require.NoError(t, err)
	w2, err := h.w.Join("second", "IRON_PICKAXE")
	require.NoError(t, err)

	assert.Equal(t, "A1", w1.AgentID)
	assert.Equal(t, "A2", w2.AgentID)
	assert.Equal(t, "WOOD_PICKAXE", w1.Tool)
	assert.Equal(t, "IRON_PICKAXE", w2.Tool)
	_, err = uuid.Parse(w1.SessionID)
	assert.NoError(t, err)
	assert.NotEqual(t, w1.SessionID, w2.SessionID)
	assert.Equal(t, protocol.TypeWelcome, w1.Type)
	assert.Len(t, w1.Catalogs.BlockPalette.Digest, 64)
	assert.Equal(t, len(h.w.Catalogs().Blocks.Palette), w1.Catalogs.BlockPalette.Count)

	_, err = h.w.Join("third", "DIAMOND_PICKAXE")
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Equal(t, protocol.ErrBadRequest, Code(err))
}

func TestNewRejectsUnknownDefaultTool(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	_, err = New(WorldConfig{DefaultTool: "SPOON"}, cats, Options{})
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = New(WorldConfig{}, nil, Options{})
	assert.Error(t, err)
}

func TestTwoStrikesForcedDrop(t *testing.T) {
	h := newWorld(t, func(c *WorldConfig) {
		c.Mining.AutoCollect = false
		c.Mining.LuckyBreak = true
		c.Mining.LuckyBreakLevel = 3
	})
	id := h.join(t, "WOOD_PICKAXE")
	h.w.Skills().SetLevel(id, "MINING", 5)
	h.w.Terrain().SetBlock(origin, "STONE")

	rep, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	assert.True(t, rep.Success)
	assert.Equal(t, []model.Vec3i{origin}, rep.Damaged)
	assert.Empty(t, rep.Destroyed)
	assert.Equal(t, "STONE", h.w.Terrain().Block(origin))
	assert.Equal(t, 6.0, h.w.Terrain().Wear(origin))
	assert.Equal(t, 1, h.hits(t, id))

	rep, err = h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	assert.Equal(t, []model.Vec3i{origin}, rep.Destroyed)
	require.Len(t, rep.Drops, 1)
	assert.Equal(t, drops.Outcome{Kind: drops.ForcedDrop, Item: "STONE", Quantity: 4}, rep.Drops[0].Outcome)
	assert.Equal(t, "AIR", h.w.Terrain().Block(origin))
	assert.Zero(t, h.hits(t, id))

	rubble := h.w.Terrain().RubbleAt(origin)
	require.Len(t, rubble, 1)
	assert.Equal(t, 4, rubble[0].Count)
	assert.True(t, rubble[0].Breakable)
	assert.Zero(t, h.w.Inventory().Count(id, "STONE"))

	evs := h.w.DrainEvents(id)
	assert.Equal(t, []string{"XP", mining.EventRubbleCreated}, eventTypes(evs))
	assert.Equal(t, "mining STONE", evs[0]["label"])
	assert.Equal(t, "Stone", evs[1]["label"])
	assert.Empty(t, h.w.DrainEvents(id))
}

func TestDamageIsNotPooledAcrossAgents(t *testing.T) {
	h := newWorld(t, nil)
	a := h.join(t, "WOOD_PICKAXE")
	b := h.join(t, "WOOD_PICKAXE")
	h.w.Terrain().SetBlock(origin, "STONE")

	for _, id := range []string{a, b} {
		rep, err := h.w.Mine(id, model.BlockTarget(origin))
		require.NoError(t, err)
		assert.Equal(t, []model.Vec3i{origin}, rep.Damaged)
		assert.Empty(t, rep.Destroyed)
	}

	// 6 + 6 reaches hardness 10, but each agent only counts its own strikes.
	assert.Equal(t, "STONE", h.w.Terrain().Block(origin))
	assert.Equal(t, 1, h.hits(t, a))
	assert.Equal(t, 1, h.hits(t, b))
	for _, id := range []string{a, b} {
		s, ok := h.w.Sessions().Get(id)
		require.True(t, ok)
		assert.Equal(t, 6.0, s.Hits.Damage("STONE", origin))
	}
	assert.Empty(t, h.w.Terrain().RubbleAt(origin))
}

func TestAutoCollectSkipsSpawn(t *testing.T) {
	h := newWorld(t, nil)
	id := h.join(t, "WOOD_PICKAXE")
	h.w.Skills().SetLevel(id, "MINING", 7)
	h.w.Terrain().SetBlock(origin, "STONE")

	_, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	rep, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)

	require.Len(t, rep.Drops, 1)
	assert.Equal(t, drops.AutoCollected, rep.Drops[0].Outcome.Kind)
	assert.Equal(t, 4, h.w.Inventory().Count(id, "STONE"))
	assert.Empty(t, h.w.Terrain().RubbleAt(origin))
	assert.Zero(t, h.hits(t, id))
	assert.Equal(t, []string{"AUTO_COLLECTED", "XP"}, eventTypes(h.w.DrainEvents(id)))
}

func TestFullInventoryFallsBackToSpawn(t *testing.T) {
	h := newWorld(t, func(c *WorldConfig) {
		c.Inventory.Slots = 1
		c.Mining.AutoCollectLevel = 0
		c.Mining.LuckyBreak = false
		c.Mining.MaxAmountPerBlock = 1
	})
	id := h.join(t, "WOOD_PICKAXE")
	require.True(t, h.w.Inventory().TryAddUnique(id, "COAL", 1))
	h.w.Terrain().SetBlock(origin, "DIRT")

	rep, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	require.Len(t, rep.Drops, 1)
	assert.Equal(t, drops.NormalDrop, rep.Drops[0].Outcome.Kind)
	assert.Equal(t, 1, rep.Drops[0].Outcome.Quantity)
	assert.Len(t, h.w.Terrain().RubbleAt(origin), 1)
	assert.Zero(t, h.w.Inventory().Count(id, "DIRT"))
}

func TestCommitFailureKeepsDamage(t *testing.T) {
	h := newWorld(t, nil)
	id := h.join(t, "WOOD_PICKAXE")
	h.w.Terrain().SetBlock(origin, "STONE")

	_, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	h.w.Terrain().Protect(origin)

	rep, err := h.w.Mine(id, model.BlockTarget(origin))
	require.ErrorIs(t, err, mining.ErrCommitFailed)
	assert.ErrorIs(t, err, terrain.ErrProtected)
	assert.Equal(t, protocol.ErrNoPermission, Code(err))
	assert.False(t, rep.Success)
	assert.Equal(t, "STONE", h.w.Terrain().Block(origin))

	s, _ := h.w.Sessions().Get(id)
	assert.Equal(t, 12.0, s.Hits.Damage("STONE", origin))
	assert.Empty(t, h.w.DrainEvents(id))

	h.w.Terrain().Unprotect(origin)
	rep, err = h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	assert.Equal(t, []model.Vec3i{origin}, rep.Destroyed)
}

func TestClusterStrike(t *testing.T) {
	h := newWorld(t, nil)
	id := h.join(t, "STONE_PICKAXE")
	h.w.Skills().SetLevel(id, "MINING", 3)
	row := []model.Vec3i{{X: 2}, {X: 0}, {X: 1}}
	for _, p := range row {
		h.w.Terrain().SetBlock(p, "STONE")
	}
	h.w.Terrain().SetBlock(model.Vec3i{X: 3}, "COAL_ORE")

	rep, err := h.w.Mine(id, model.BlockTarget(model.Vec3i{X: 1}))
	require.NoError(t, err)
	assert.Equal(t, []model.Vec3i{{X: 0}, {X: 1}, {X: 2}}, rep.Damaged)
	assert.Equal(t, 3, h.hits(t, id))

	rep, err = h.w.Mine(id, model.BlockTarget(model.Vec3i{X: 1}))
	require.NoError(t, err)
	assert.Equal(t, []model.Vec3i{{X: 0}, {X: 1}, {X: 2}}, rep.Destroyed)
	require.Len(t, rep.Drops, 3)
	for _, d := range rep.Drops {
		assert.Equal(t, drops.ForcedDrop, d.Outcome.Kind)
	}
	assert.Equal(t, "COAL_ORE", h.w.Terrain().Block(model.Vec3i{X: 3}))
	assert.Zero(t, h.hits(t, id))
}

func TestBlockWithoutItem(t *testing.T) {
	for _, forget := range []bool{false, true} {
		h := newWorld(t, func(c *WorldConfig) { c.Mining.ForgetOnFailedDrop = forget })
		id := h.join(t, "WOOD_PICKAXE")
		h.w.Terrain().SetBlock(origin, "GLASS")

		rep, err := h.w.Mine(id, model.BlockTarget(origin))
		require.NoError(t, err)
		require.Len(t, rep.Drops, 1)
		assert.Equal(t, drops.NoDrop, rep.Drops[0].Outcome.Kind)
		assert.NoError(t, rep.Drops[0].Err)
		assert.Equal(t, "AIR", h.w.Terrain().Block(origin))
		assert.Empty(t, h.w.DrainEvents(id), "no reward for an item-less block")
		if forget {
			assert.Zero(t, h.hits(t, id))
		} else {
			assert.Equal(t, 1, h.hits(t, id))
		}
	}
}

func TestUnresolvedTarget(t *testing.T) {
	h := newWorld(t, nil)
	id := h.join(t, "")
	h.w.Terrain().SetBlock(origin, "BEDROCK")

	_, err := h.w.Mine(id, model.BlockTarget(model.Vec3i{Y: 9}))
	assert.ErrorIs(t, err, mining.ErrTargetUnresolved)
	assert.Equal(t, protocol.ErrInvalidTarget, Code(err))

	_, err = h.w.Mine(id, model.BlockTarget(origin))
	assert.ErrorIs(t, err, mining.ErrTargetUnresolved, "bedrock is not minable")

	_, err = h.w.Mine(id, model.RubbleTarget("R-missing"))
	assert.ErrorIs(t, err, mining.ErrTargetUnresolved)

	_, err = h.w.Mine("A99", model.BlockTarget(origin))
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestStandaloneRubble(t *testing.T) {
	h := newWorld(t, func(c *WorldConfig) { c.Mining.RubbleDurability = 10 })
	id := h.join(t, "WOOD_PICKAXE")
	ok, _ := h.w.Terrain().TrySpawn(id, "STONE", origin, 3)
	require.True(t, ok)
	pile := h.w.Terrain().RubbleAt(origin)[0]

	rep, err := h.w.Mine(id, model.RubbleTarget(pile.ID))
	require.NoError(t, err)
	assert.True(t, rep.Success)
	assert.False(t, rep.Broken)
	assert.Empty(t, rep.Drops)
	require.NotNil(t, rep.Standalone)
	assert.Equal(t, pile.ID, rep.Standalone.ID)
	assert.Zero(t, h.hits(t, id), "standalone strikes bypass the hit cache")

	rep, err = h.w.Mine(id, model.RubbleTarget(pile.ID))
	require.NoError(t, err)
	assert.True(t, rep.Broken)
	pieces := h.w.Terrain().RubbleAt(origin)
	require.Len(t, pieces, 3)

	got, err := h.w.PickUp(id, pieces[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "STONE", got.Item)
	assert.Equal(t, 1, h.w.Inventory().Count(id, "STONE"))
	assert.Len(t, h.w.Terrain().RubbleAt(origin), 2)
	assert.Equal(t, []string{"PICKED_UP"}, eventTypes(h.w.DrainEvents(id)))
}

func TestPickUpErrors(t *testing.T) {
	h := newWorld(t, func(c *WorldConfig) { c.Inventory.Slots = 1 })
	id := h.join(t, "WOOD_PICKAXE")
	tr := h.w.Terrain()

	tr.TrySpawn(id, "STONE", origin, 2)
	tr.TrySpawn(id, "COAL_ORE", origin, 1)
	tr.TrySpawn(id, "DIRT", origin, 1)
	var pile, coal, dirt string
	for _, r := range tr.RubbleAt(origin) {
		switch {
		case r.Breakable:
			pile = r.ID
		case r.Item == "COAL":
			coal = r.ID
		default:
			dirt = r.ID
		}
	}

	_, err := h.w.PickUp(id, pile)
	assert.ErrorIs(t, err, terrain.ErrNotPickable)
	assert.Equal(t, protocol.ErrInvalidTarget, Code(err))

	_, err = h.w.PickUp(id, coal)
	assert.ErrorIs(t, err, ErrCannotPickUp)
	assert.Equal(t, protocol.ErrBlocked, Code(err))

	require.True(t, h.w.Inventory().TryAddUnique(id, "STONE", 1))
	_, err = h.w.PickUp(id, dirt)
	assert.ErrorIs(t, err, ErrInventoryFull)
	assert.Equal(t, protocol.ErrNoResource, Code(err))
	_, ok := tr.Rubble(dirt)
	assert.True(t, ok)

	_, err = h.w.PickUp("A42", dirt)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestLeaveDiscardsSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := newWorld(t, nil, func(o *Options) { o.Metrics = m })
	id := h.join(t, "WOOD_PICKAXE")
	h.w.Terrain().SetBlock(origin, "STONE")

	_, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HitEntries()))
	s, ok := h.w.Sessions().Get(id)
	require.True(t, ok)

	h.w.Leave(id)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HitEntries()))
	assert.Zero(t, s.Hits.Len(), "a handler still holding the session sees no pending damage")
	assert.Zero(t, h.w.Sessions().Len())
	_, err = h.w.Mine(id, model.BlockTarget(origin))
	assert.ErrorIs(t, err, ErrUnknownAgent)
	h.w.Emit(id, protocol.Event{"type": "LATE"})
	assert.Empty(t, h.w.DrainEvents(id))

	h.w.Leave(id)
	assert.Equal(t, "LEAVE", h.audit.entries[len(h.audit.entries)-1].Action)
}

func TestAuditTrail(t *testing.T) {
	h := newWorld(t, func(c *WorldConfig) {
		c.Mining.AutoCollect = false
		c.Mining.LuckyBreakLevel = 0
	})
	id := h.join(t, "WOOD_PICKAXE")
	h.w.Terrain().SetBlock(origin, "DIRT")

	_, err := h.w.Mine(id, model.BlockTarget(origin))
	require.NoError(t, err)

	assert.Equal(t, []string{"JOIN", "BLOCK_DESTROY", "RUBBLE_SPAWN", "DROP"}, h.audit.actions())
	for i, e := range h.audit.entries {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.NotEmpty(t, e.Time)
	}
	drop := h.audit.entries[3]
	assert.Equal(t, "FORCED_DROP", drop.Reason)
	assert.Equal(t, "DIRT", drop.Item)
	assert.Equal(t, 4, drop.Count)
}

type failingWriter struct{}

func (failingWriter) WriteAudit(model.AuditEntry) error { return errors.New("disk full") }

func TestWriteAuditFansOut(t *testing.T) {
	rec := &auditRecorder{}
	h := newWorld(t, nil, func(o *Options) { o.Audit = []AuditWriter{failingWriter{}, rec} })

	err := h.w.WriteAudit(model.AuditEntry{Action: "TEST"})
	assert.EqualError(t, err, "disk full")
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "TEST", rec.entries[0].Action)
}

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{mining.ErrTargetUnresolved, protocol.ErrInvalidTarget},
		{mining.ErrCommitFailed, protocol.ErrConflict},
		{terrain.ErrNoRubble, protocol.ErrInvalidTarget},
		{ErrUnknownAgent, protocol.ErrBadRequest},
		{errors.New("boom"), protocol.ErrInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Code(c.err), "%v", c.err)
		assert.True(t, protocol.IsKnownCode(Code(c.err)))
	}
}
