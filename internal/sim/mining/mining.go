// Package mining resolves pickaxe strikes against terrain.
//
// One call to Operation.Execute handles a single click: it resolves the
// targeted cluster (or standalone rubble), adds strike damage to the actor's
// hit cache, batches damage/destroy actions into one transaction and, once the
// transaction has committed, resolves drops and rewards for every destroyed
// block.
//
// Operation holds no per-actor state and performs no locking. The caller must
// not run two operations for the same actor at once. Actors never share hit
// caches, so two actors striking the same block do not add up their damage;
// the world's transaction engine decides who removes it first.
package mining

import (
	"errors"

	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/mining/hitcache"
	"voxelmine.ai/internal/sim/mining/txpack"
	"voxelmine.ai/internal/sim/model"
)

var (
	// ErrTargetUnresolved means neither a cluster nor a standalone object was
	// found. Nothing was mutated.
	ErrTargetUnresolved = errors.New("mining: target unresolved")
	// ErrCommitFailed means the world rejected the batch. Damage already added
	// to the hit cache is kept.
	ErrCommitFailed = errors.New("mining: commit failed")
	// ErrDropUnresolved marks a destroyed block whose item could neither be
	// collected nor spawned. It never fails the operation.
	ErrDropUnresolved = errors.New("mining: drop unresolved")
)

const (
	TagMinable       = "minable"
	TagMinableRubble = "minable_rubble"
)

// Tool is the pickaxe used for a strike.
type Tool struct {
	Item        string
	Tier        int
	Damage      float64
	ClusterSize int
}

// Actor is the striking user together with their session-scoped hit cache.
type Actor struct {
	ID   string
	Hits *hitcache.Cache
}

// ElementDef is what the block catalog knows about a destructible type.
type ElementDef struct {
	Hardness float64
	// Item is the item the block represents, empty when it represents none.
	Item string
}

type Catalog interface {
	Element(blockType string) (ElementDef, bool)
}

type Geometry interface {
	// ResolveCluster returns up to limit elements reachable from target whose
	// block tags intersect tags, ordered ascending by (X, Y, Z).
	ResolveCluster(target model.Target, tags []string, limit int) ([]model.Element, bool)
	// ResolveStandalone returns the breakable object named by target.
	ResolveStandalone(target model.Target) (model.Standalone, bool)
}

// ActorStats is read on every strike; values are never cached between strikes.
type ActorStats interface {
	CurrentPerkDamage(actor string) float64
	CurrentBaseDamage(actor string, tool Tool) float64
	SkillLevel(actor, skill string) int
}

type Rewards interface {
	AwardExperience(actor string, amount float64, label string)
	NotifyUI(actor, event, label string)
}

// World is the transaction engine plus the standalone breakup hook.
type World interface {
	txpack.Performer
	Breakup(actor, rubbleID string) error
}

// UI events raised through Rewards.NotifyUI.
const (
	EventRubbleCreated = "RUBBLE_CREATED"
)

type State int

const (
	StateIdle State = iota
	StateTargetResolved
	StateDamaging
	StateDestroyPending
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateTargetResolved:
		return "TARGET_RESOLVED"
	case StateDamaging:
		return "DAMAGING"
	case StateDestroyPending:
		return "DESTROY_PENDING"
	case StateCommitted:
		return "COMMITTED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// ElementDrop is the post-commit result for one destroyed block.
type ElementDrop struct {
	Element model.Element
	Outcome drops.Outcome
	// Err is ErrDropUnresolved when an item existed but went nowhere.
	Err error
}

type Report struct {
	Success bool
	State   State
	// Standalone is set when the strike hit a rubble object instead of terrain.
	Standalone *model.Standalone

	Damaged   []model.Vec3i
	Destroyed []model.Vec3i
	Drops     []ElementDrop
	Broken    bool
}
