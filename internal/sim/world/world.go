// Package world wires the mining pipeline to the terrain, inventory and skill
// stores and serves it to connected agents.
package world

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"voxelmine.ai/internal/observability/metrics"
	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/catalogs"
	"voxelmine.ai/internal/sim/inventory"
	"voxelmine.ai/internal/sim/mining"
	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/mining/session"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/skills"
	"voxelmine.ai/internal/sim/terrain"
)

type AuditWriter interface {
	WriteAudit(e model.AuditEntry) error
}

type Options struct {
	Logger  *log.Logger
	Audit   []AuditWriter
	Metrics *metrics.Mining
}

type Agent struct {
	ID   string
	Name string
	Tool mining.Tool

	// mu serializes the agent's mining and pickups.
	mu sync.Mutex
}

type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *log.Logger
	now      func() time.Time

	terrain  *terrain.Store
	inv      *inventory.Store
	skills   *skills.Book
	sessions *session.Registry
	op       *mining.Operation
	metrics  *metrics.Mining

	audit    []AuditWriter
	auditSeq atomic.Uint64

	nextAgentNum atomic.Uint64

	mu     sync.Mutex
	agents map[string]*Agent
	outbox map[string][]protocol.Event
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, opts Options) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: catalogs are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.DefaultTool != "" {
		if _, ok := cats.Tools.Defs[cfg.DefaultTool]; !ok {
			return nil, fmt.Errorf("world: %w: %s", ErrUnknownTool, cfg.DefaultTool)
		}
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		log:      logger,
		now:      time.Now,
		sessions: session.NewRegistry(),
		metrics:  opts.Metrics,
		audit:    opts.Audit,
		agents:   map[string]*Agent{},
		outbox:   map[string][]protocol.Event{},
	}
	w.terrain = terrain.New(terrain.Config{
		Seed:              cfg.Seed,
		MaxAmountPerBlock: cfg.Mining.MaxAmountPerBlock,
		MaxRubblePerCell:  cfg.Mining.MaxRubblePerCell,
		RubbleDurability:  cfg.Mining.RubbleDurability,
		SpawnFailChance:   cfg.Mining.SpawnFailChance,
	}, cats, w)
	w.inv = inventory.New(cfg.Inventory.Slots, cats.StackMax)
	w.skills = skills.New(skills.Config{
		Skill:              cfg.Mining.Skill,
		PerkDamagePerLevel: cfg.Skills.PerkDamagePerLevel,
		XPPerLevel:         cfg.Skills.XPPerLevel,
		MaxLevel:           cfg.Skills.MaxLevel,
	}, w)

	var obs mining.Observer = auditObserver{w: w}
	if w.metrics != nil {
		obs = mining.Observers(w.metrics, obs)
	}
	op, err := mining.NewOperation(mining.Config{
		Tags:               cfg.Mining.ClusterTags,
		Skill:              cfg.Mining.Skill,
		ExperiencePerBlock: cfg.Mining.ExperiencePerBlock,
		Policy: drops.Policy{
			AutoCollect:       cfg.Mining.AutoCollect,
			AutoCollectLevel:  cfg.Mining.AutoCollectLevel,
			LuckyBreak:        cfg.Mining.LuckyBreak,
			LuckyBreakLevel:   cfg.Mining.LuckyBreakLevel,
			MaxAmountPerBlock: cfg.Mining.MaxAmountPerBlock,
		},
		ForgetOnFailedDrop: cfg.Mining.ForgetOnFailedDrop,
	}, mining.Deps{
		Geometry:  w.terrain,
		Catalog:   blockElements{cats: cats},
		Stats:     w.skills,
		Inventory: w.inv,
		Spawner:   w.terrain,
		Rewards:   rewards{book: w.skills, cats: cats},
		World:     w.terrain,
		Observer:  obs,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	w.op = op

	if cfg.Gen != nil {
		w.terrain.Generate(*cfg.Gen)
		w.log.Printf("generated %dx%dx%d terrain (seed %d)", cfg.Gen.Size, cfg.Gen.Size, cfg.Gen.Height, cfg.Gen.Seed)
	}
	return w, nil
}

func (w *World) Terrain() *terrain.Store      { return w.terrain }
func (w *World) Inventory() *inventory.Store  { return w.inv }
func (w *World) Skills() *skills.Book         { return w.skills }
func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }
func (w *World) Sessions() *session.Registry  { return w.sessions }

func (w *World) tool(id string) (mining.Tool, error) {
	if id == "" {
		id = w.cfg.DefaultTool
	}
	def, ok := w.catalogs.Tools.Defs[id]
	if !ok {
		return mining.Tool{}, fmt.Errorf("%w: %q", ErrUnknownTool, id)
	}
	return mining.Tool{Item: def.ID, Tier: def.Tier, Damage: def.Damage, ClusterSize: def.ClusterSize}, nil
}

// Join registers a new agent holding tool and opens its session.
func (w *World) Join(name, tool string) (protocol.WelcomeMsg, error) {
	t, err := w.tool(tool)
	if err != nil {
		return protocol.WelcomeMsg{}, err
	}
	id := fmt.Sprintf("A%d", w.nextAgentNum.Add(1))
	a := &Agent{ID: id, Name: name, Tool: t}

	w.mu.Lock()
	w.agents[id] = a
	w.mu.Unlock()
	s := w.sessions.Start(id)

	_ = w.WriteAudit(model.AuditEntry{Actor: id, Action: "JOIN", Item: t.Item, Reason: name})
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         id,
		SessionID:       s.ID,
		Tool:            t.Item,
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: w.catalogs.Blocks.PaletteDigest, Count: len(w.catalogs.Blocks.Palette)},
			ItemPalette:  protocol.DigestRef{Digest: w.catalogs.Items.PaletteDigest, Count: len(w.catalogs.Items.Palette)},
			ToolsDigest:  w.catalogs.Tools.Digest,
		},
	}, nil
}

// Leave ends the agent's session. Pending damage in its hit cache is
// discarded along with its inventory and skills.
func (w *World) Leave(agentID string) {
	w.mu.Lock()
	_, ok := w.agents[agentID]
	delete(w.agents, agentID)
	delete(w.outbox, agentID)
	w.mu.Unlock()
	if !ok {
		return
	}
	if s, ok := w.sessions.End(agentID); ok {
		n := s.Hits.Len()
		s.Hits.Reset()
		if w.metrics != nil {
			w.metrics.AddHitEntries(-n)
		}
	}
	w.inv.Drop(agentID)
	w.skills.Forget(agentID)
	_ = w.WriteAudit(model.AuditEntry{Actor: agentID, Action: "LEAVE"})
}

func (w *World) agent(id string) (*Agent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return a, nil
}

// Mine runs one strike of the agent's tool at target.
func (w *World) Mine(agentID string, target model.Target) (mining.Report, error) {
	a, err := w.agent(agentID)
	if err != nil {
		return mining.Report{State: mining.StateAborted}, err
	}
	s, ok := w.sessions.Get(agentID)
	if !ok {
		return mining.Report{State: mining.StateAborted}, fmt.Errorf("%w: %s has no session", ErrUnknownAgent, agentID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	before := s.Hits.Len()
	rep, err := w.op.Execute(a.Tool, s.Actor(), target)
	if w.metrics != nil {
		w.metrics.AddHitEntries(s.Hits.Len() - before)
	}
	return rep, err
}

// PickUp moves a single rubble piece into the agent's inventory.
func (w *World) PickUp(agentID, rubbleID string) (terrain.Rubble, error) {
	a, err := w.agent(agentID)
	if err != nil {
		return terrain.Rubble{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	var reason error
	r, err := w.terrain.Claim(agentID, rubbleID, func(r terrain.Rubble) bool {
		if !w.catalogs.CanPickaxePickUp(r.Item) {
			reason = ErrCannotPickUp
			return false
		}
		if !w.inv.TryAddUnique(agentID, r.Item, r.Count) {
			reason = ErrInventoryFull
			return false
		}
		return true
	})
	if err != nil {
		if reason != nil {
			return terrain.Rubble{}, fmt.Errorf("%w: %s", reason, rubbleID)
		}
		return terrain.Rubble{}, err
	}
	w.Emit(agentID, protocol.Event{"type": "PICKED_UP", "item": r.Item, "count": r.Count})
	return r, nil
}

// Emit queues ev for agentID. Events for unknown agents are dropped.
func (w *World) Emit(agentID string, ev protocol.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.agents[agentID]; !ok {
		return
	}
	w.outbox[agentID] = append(w.outbox[agentID], ev)
}

// DrainEvents returns and clears everything queued for agentID.
func (w *World) DrainEvents(agentID string) []protocol.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	evs := w.outbox[agentID]
	delete(w.outbox, agentID)
	return evs
}

// WriteAudit stamps e with the next sequence number and hands it to every
// audit writer. The first writer error is returned; all writers still run.
func (w *World) WriteAudit(e model.AuditEntry) error {
	e.Seq = w.auditSeq.Add(1)
	if e.Time == "" {
		e.Time = w.now().UTC().Format(time.RFC3339Nano)
	}
	var first error
	for _, a := range w.audit {
		if err := a.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		w.log.Printf("audit %s seq=%d: %v", e.Action, e.Seq, first)
	}
	return first
}
