package terrain

import (
	"fmt"

	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/mining/txpack"
)

// Perform validates every action against the current state and applies the
// batch only when all of them are valid.
func (s *Store) Perform(actor string, actions []txpack.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.checkLocked(actions); err != nil {
		return err
	}
	for _, a := range actions {
		s.applyLocked(actor, a)
	}
	return nil
}

// Preview reports whether the batch is valid and would use up the durability
// of at least one rubble object.
func (s *Store) Preview(actions []txpack.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	finishes, err := s.checkLocked(actions)
	return err == nil && finishes
}

func (s *Store) checkLocked(actions []txpack.Action) (bool, error) {
	finishes := false
	spent := map[string]float64{}
	for _, a := range actions {
		switch a.Kind {
		case txpack.ActionDamage, txpack.ActionDestroy:
			b, ok := s.blocks[a.Pos]
			if !ok {
				return false, fmt.Errorf("%w at %s", ErrNoBlock, a.Pos)
			}
			if s.cat == nil || !s.cat.Breakable(b) {
				return false, fmt.Errorf("%w: %s at %s", ErrUnbreakable, b, a.Pos)
			}
			if s.protected[a.Pos] {
				return false, fmt.Errorf("%w at %s", ErrProtected, a.Pos)
			}
		case txpack.ActionDamageRubble:
			r, ok := s.rubble[a.RubbleID]
			if !ok {
				return false, fmt.Errorf("%w: %s", ErrNoRubble, a.RubbleID)
			}
			if !r.Breakable {
				return false, fmt.Errorf("%w: %s", ErrNotBreakable, a.RubbleID)
			}
			spent[r.ID] += a.Amount
			if spent[r.ID] >= r.Durability {
				finishes = true
			}
		default:
			return false, fmt.Errorf("%w: %s", ErrUnknownAction, a.Kind)
		}
	}
	return finishes, nil
}

func (s *Store) applyLocked(actor string, a txpack.Action) {
	switch a.Kind {
	case txpack.ActionDamage:
		s.wear[a.Pos] += a.Amount
		s.emit(entry(actor, "MINE_HIT", a.Pos, s.blocks[a.Pos], "", 0, ""))
	case txpack.ActionDestroy:
		b := s.blocks[a.Pos]
		s.setBlockLocked(a.Pos, "")
		s.emit(entry(actor, "BLOCK_DESTROY", a.Pos, b, "", 0, ""))
		if !a.SuppressRubble {
			s.spawnLocked(actor, b, a.Pos, drops.DefaultQuantity, "DESTROY")
		}
	case txpack.ActionDamageRubble:
		r := s.rubble[a.RubbleID]
		r.Durability -= a.Amount
		if r.Durability < 0 {
			r.Durability = 0
		}
		s.emit(entry(actor, "RUBBLE_HIT", r.Pos, r.Block, r.Item, r.Count, r.ID))
	}
}
