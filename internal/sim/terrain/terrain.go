// Package terrain is the in-memory voxel store the mining pipeline acts on.
//
// It answers geometry queries, applies batches of primitive mutations
// atomically, and owns the rubble objects that destroyed blocks leave behind.
// All methods are safe for concurrent use.
package terrain

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"voxelmine.ai/internal/sim/model"
)

var (
	ErrNoBlock       = errors.New("terrain: no block")
	ErrUnbreakable   = errors.New("terrain: block is unbreakable")
	ErrProtected     = errors.New("terrain: cell is protected")
	ErrNoRubble      = errors.New("terrain: no such rubble")
	ErrNotBreakable  = errors.New("terrain: rubble is not breakable")
	ErrNotPickable   = errors.New("terrain: rubble cannot be picked up")
	ErrRejected      = errors.New("terrain: pickup rejected")
	ErrUnknownAction = errors.New("terrain: unknown action")
)

// Catalog is the block metadata the store needs.
type Catalog interface {
	HasTag(block, tag string) bool
	Breakable(block string) bool
	DropItem(block string) string
}

type AuditSink interface {
	WriteAudit(e model.AuditEntry) error
}

type Config struct {
	Seed int64

	MaxAmountPerBlock int
	MaxRubblePerCell  int
	RubbleDurability  float64
	// SpawnFailChance is the probability in [0,1) that a default-quantity
	// spawn yields nothing.
	SpawnFailChance float64
}

// Rubble is a pile of items lying in the world. A breakable pile holds more
// than one item and has to be struck apart before it can be picked up.
type Rubble struct {
	ID         string
	Pos        model.Vec3i
	Block      string
	Item       string
	Count      int
	Durability float64
	Breakable  bool
}

type Store struct {
	mu sync.Mutex

	cfg   Config
	cat   Catalog
	audit AuditSink
	rng   *rand.Rand
	newID func() string

	blocks    map[model.Vec3i]string
	wear      map[model.Vec3i]float64
	protected map[model.Vec3i]bool
	rubble    map[string]*Rubble
	rubbleAt  map[model.Vec3i][]string
}

func New(cfg Config, cat Catalog, audit AuditSink) *Store {
	if cfg.MaxAmountPerBlock < 1 {
		cfg.MaxAmountPerBlock = 1
	}
	if cfg.MaxRubblePerCell < 1 {
		cfg.MaxRubblePerCell = 1
	}
	if cfg.RubbleDurability <= 0 {
		cfg.RubbleDurability = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Store{
		cfg:       cfg,
		cat:       cat,
		audit:     audit,
		rng:       rand.New(rand.NewSource(seed)),
		newID:     newRubbleID,
		blocks:    map[model.Vec3i]string{},
		wear:      map[model.Vec3i]float64{},
		protected: map[model.Vec3i]bool{},
		rubble:    map[string]*Rubble{},
		rubbleAt:  map[model.Vec3i][]string{},
	}
}

// SetBlock places block at pos. An empty id or "AIR" clears the cell.
func (s *Store) SetBlock(pos model.Vec3i, block string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBlockLocked(pos, block)
}

func (s *Store) setBlockLocked(pos model.Vec3i, block string) {
	delete(s.wear, pos)
	if block == "" || block == "AIR" {
		delete(s.blocks, pos)
		return
	}
	s.blocks[pos] = block
}

// Block returns the block at pos, "AIR" for an empty cell.
func (s *Store) Block(pos model.Vec3i) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blocks[pos]; ok {
		return b
	}
	return "AIR"
}

// Wear is the damage the world has recorded against a surviving block.
func (s *Store) Wear(pos model.Vec3i) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wear[pos]
}

// Protect marks pos so no batch may damage or destroy it.
func (s *Store) Protect(pos model.Vec3i) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected[pos] = true
}

func (s *Store) Unprotect(pos model.Vec3i) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.protected, pos)
}

func (s *Store) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

func (s *Store) emit(e model.AuditEntry) {
	if s.audit == nil {
		return
	}
	_ = s.audit.WriteAudit(e)
}
