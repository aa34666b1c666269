// Package txpack batches primitive world mutations so they are applied all at
// once, and carries the follow-up work that may only run after they applied.
package txpack

import (
	"errors"
	"fmt"

	"voxelmine.ai/internal/sim/model"
)

var ErrCommitted = errors.New("txpack: pack already committed")

type ActionKind int

const (
	// ActionDamage records a strike on a block that survives it.
	ActionDamage ActionKind = iota + 1
	// ActionDestroy removes a block.
	ActionDestroy
	// ActionDamageRubble wears down a standalone rubble object.
	ActionDamageRubble
)

func (k ActionKind) String() string {
	switch k {
	case ActionDamage:
		return "DAMAGE"
	case ActionDestroy:
		return "DESTROY"
	case ActionDamageRubble:
		return "DAMAGE_RUBBLE"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

type Action struct {
	Kind     ActionKind
	Pos      model.Vec3i
	RubbleID string
	Amount   float64
	// SuppressRubble skips the world's own rubble spawn on destroy.
	SuppressRubble bool
}

type EffectKind int

const (
	// EffectResolveDrop runs drop resolution and rewards for a destroyed block.
	EffectResolveDrop EffectKind = iota + 1
	// EffectBreakup splits a standalone rubble object into pieces.
	EffectBreakup
)

// Effect describes deferred work. It holds plain values only; the committer
// interprets it after a successful Commit.
type Effect struct {
	Kind      EffectKind
	BlockType string
	Pos       model.Vec3i
	Item      string
	RubbleID  string
}

// Performer is the world-side transaction engine.
type Performer interface {
	// Perform applies every action or none of them.
	Perform(actor string, actions []Action) error
	// Preview validates actions without applying them and reports whether
	// they would finish off a standalone object.
	Preview(actions []Action) bool
}

type Pack struct {
	performer Performer
	actions   []Action
	effects   []Effect
	committed bool
}

func New(p Performer) *Pack {
	return &Pack{performer: p}
}

func (p *Pack) QueueDamage(pos model.Vec3i, amount float64) {
	p.actions = append(p.actions, Action{Kind: ActionDamage, Pos: pos, Amount: amount})
}

func (p *Pack) QueueDestroy(pos model.Vec3i, suppressRubble bool) {
	p.actions = append(p.actions, Action{Kind: ActionDestroy, Pos: pos, SuppressRubble: suppressRubble})
}

func (p *Pack) QueueRubbleDamage(id string, pos model.Vec3i, amount float64) {
	p.actions = append(p.actions, Action{Kind: ActionDamageRubble, RubbleID: id, Pos: pos, Amount: amount})
}

func (p *Pack) QueueDeferred(e Effect) {
	p.effects = append(p.effects, e)
}

func (p *Pack) Len() int { return len(p.actions) }

// EarlyResult asks the performer, before anything is applied, whether the
// queued actions would complete a standalone object.
func (p *Pack) EarlyResult() bool {
	if p.performer == nil || len(p.actions) == 0 || p.committed {
		return false
	}
	return p.performer.Preview(p.actions)
}

// Commit applies the queued actions as one unit. On success it returns the
// deferred effects in queue order; on failure none of them are returned and
// the caller must not run them.
func (p *Pack) Commit(actor string) ([]Effect, error) {
	if p.committed {
		return nil, ErrCommitted
	}
	p.committed = true
	if p.performer == nil {
		return nil, fmt.Errorf("txpack: no performer")
	}
	if err := p.performer.Perform(actor, p.actions); err != nil {
		p.effects = nil
		return nil, err
	}
	effects := p.effects
	p.effects = nil
	return effects, nil
}
