// Package drops decides what a destroyed block yields.
//
// Precedence, in order:
//  1. no represented item: NoDrop
//  2. auto-collect eligible and the whole stack fits the carried inventory: AutoCollected
//  3. otherwise spawn rubble in the world, with the maximum quantity when the
//     lucky-break policy applies (ForcedDrop) or the spawner's own quantity
//     policy when it does not (NormalDrop)
//  4. a failed spawn: NoDrop
package drops

import (
	"voxelmine.ai/internal/sim/model"
)

// DefaultQuantity asks the spawner to pick the quantity itself.
const DefaultQuantity = -1

type Kind int

const (
	NoDrop Kind = iota
	AutoCollected
	ForcedDrop
	NormalDrop
)

func (k Kind) String() string {
	switch k {
	case AutoCollected:
		return "AUTO_COLLECTED"
	case ForcedDrop:
		return "FORCED_DROP"
	case NormalDrop:
		return "NORMAL_DROP"
	default:
		return "NO_DROP"
	}
}

type Outcome struct {
	Kind     Kind
	Item     string
	Quantity int
}

// Credited reports whether the outcome earns the actor a reward.
func (o Outcome) Credited() bool { return o.Kind != NoDrop }

// Element is the drop-relevant view of a destroyed block. Item is empty when
// the block does not represent any item.
type Element struct {
	Type string
	Pos  model.Vec3i
	Item string
}

type Inventory interface {
	// TryAddUnique places exactly quantity items or nothing at all.
	TryAddUnique(actor, item string, quantity int) bool
}

type Spawner interface {
	// TrySpawn creates rubble for blockType at pos. forced is either a fixed
	// quantity or DefaultQuantity.
	TrySpawn(actor, blockType string, pos model.Vec3i, forced int) (ok bool, quantity int)
}

// Policy holds the two skill-gated drop rules. A level threshold of 0 makes
// the rule apply to everyone.
type Policy struct {
	AutoCollect       bool
	AutoCollectLevel  int
	LuckyBreak        bool
	LuckyBreakLevel   int
	MaxAmountPerBlock int
}

func (p Policy) autoCollects(level int) bool {
	return p.AutoCollect && level >= p.AutoCollectLevel
}

func (p Policy) luckyBreak(level int) bool {
	return p.LuckyBreak && level >= p.LuckyBreakLevel
}

type Resolver struct {
	inv    Inventory
	spawn  Spawner
	policy Policy
}

func NewResolver(inv Inventory, spawn Spawner, policy Policy) *Resolver {
	if policy.MaxAmountPerBlock < 1 {
		policy.MaxAmountPerBlock = 1
	}
	return &Resolver{inv: inv, spawn: spawn, policy: policy}
}

// Resolve runs the drop precedence for one destroyed element on behalf of
// actor, whose relevant skill is at level.
func (r *Resolver) Resolve(actor string, el Element, level int) Outcome {
	if el.Item == "" {
		return Outcome{Kind: NoDrop}
	}
	max := r.policy.MaxAmountPerBlock

	if r.policy.autoCollects(level) && r.inv != nil {
		if r.inv.TryAddUnique(actor, el.Item, max) {
			return Outcome{Kind: AutoCollected, Item: el.Item, Quantity: max}
		}
		// Inventory full: the block still has to land somewhere.
	}

	if r.spawn == nil {
		return Outcome{Kind: NoDrop, Item: el.Item}
	}
	forced := r.policy.luckyBreak(level)
	qty := DefaultQuantity
	if forced {
		qty = max
	}
	ok, got := r.spawn.TrySpawn(actor, el.Type, el.Pos, qty)
	if !ok {
		return Outcome{Kind: NoDrop, Item: el.Item}
	}
	if forced {
		return Outcome{Kind: ForcedDrop, Item: el.Item, Quantity: got}
	}
	return Outcome{Kind: NormalDrop, Item: el.Item, Quantity: got}
}
