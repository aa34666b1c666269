package terrain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"voxelmine.ai/internal/sim/model"
)

func newRubbleID() string { return "R-" + uuid.NewString() }

func entry(actor, action string, pos model.Vec3i, block, item string, count int, reason string) model.AuditEntry {
	return model.AuditEntry{
		Actor:  actor,
		Action: action,
		Pos:    pos.ToArray(),
		Block:  block,
		Item:   item,
		Count:  count,
		Reason: reason,
	}
}

// TrySpawn drops the item blockType represents at pos. A positive forced
// quantity is used verbatim; otherwise the quantity is rolled in
// [1, MaxAmountPerBlock] and the roll may fail outright.
func (s *Store) TrySpawn(actor, blockType string, pos model.Vec3i, forced int) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnLocked(actor, blockType, pos, forced, "MINE")
}

func (s *Store) spawnLocked(actor, blockType string, pos model.Vec3i, forced int, reason string) (bool, int) {
	if s.cat == nil {
		return false, 0
	}
	item := s.cat.DropItem(blockType)
	if item == "" {
		return false, 0
	}
	if len(s.rubbleAt[pos]) >= s.cfg.MaxRubblePerCell {
		return false, 0
	}

	qty := forced
	if qty <= 0 {
		if s.cfg.SpawnFailChance > 0 && s.rng.Float64() < s.cfg.SpawnFailChance {
			return false, 0
		}
		qty = 1 + s.rng.Intn(s.cfg.MaxAmountPerBlock)
	}

	s.addRubbleLocked(&Rubble{
		ID:         s.newID(),
		Pos:        pos,
		Block:      blockType,
		Item:       item,
		Count:      qty,
		Durability: s.cfg.RubbleDurability,
		Breakable:  qty > 1,
	}, actor, reason)
	return true, qty
}

func (s *Store) addRubbleLocked(r *Rubble, actor, reason string) {
	s.rubble[r.ID] = r
	s.rubbleAt[r.Pos] = append(s.rubbleAt[r.Pos], r.ID)
	s.emit(entry(actor, "RUBBLE_SPAWN", r.Pos, r.Block, r.Item, r.Count, reason))
}

func (s *Store) removeRubbleLocked(id string) *Rubble {
	r := s.rubble[id]
	if r == nil {
		return nil
	}
	delete(s.rubble, id)
	ids := s.rubbleAt[r.Pos]
	for i, x := range ids {
		if x == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.rubbleAt, r.Pos)
	} else {
		s.rubbleAt[r.Pos] = ids
	}
	return r
}

// Breakup splits a breakable pile into single-item pieces on the same cell.
func (s *Store) Breakup(actor, rubbleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rubble[rubbleID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRubble, rubbleID)
	}
	if !r.Breakable {
		return fmt.Errorf("%w: %s", ErrNotBreakable, rubbleID)
	}
	s.removeRubbleLocked(rubbleID)
	s.emit(entry(actor, "RUBBLE_BREAKUP", r.Pos, r.Block, r.Item, r.Count, r.ID))
	for i := 0; i < r.Count; i++ {
		s.addRubbleLocked(&Rubble{
			ID:    s.newID(),
			Pos:   r.Pos,
			Block: r.Block,
			Item:  r.Item,
			Count: 1,
		}, actor, "BREAKUP")
	}
	return nil
}

// Claim removes a single-item piece when accept agrees to take it. accept
// runs under the store lock and must not call back into the store.
func (s *Store) Claim(actor, rubbleID string, accept func(Rubble) bool) (Rubble, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rubble[rubbleID]
	if !ok {
		return Rubble{}, fmt.Errorf("%w: %s", ErrNoRubble, rubbleID)
	}
	if r.Breakable {
		return Rubble{}, fmt.Errorf("%w: %s", ErrNotPickable, rubbleID)
	}
	if accept != nil && !accept(*r) {
		return Rubble{}, fmt.Errorf("%w: %s", ErrRejected, rubbleID)
	}
	s.removeRubbleLocked(rubbleID)
	s.emit(entry(actor, "RUBBLE_PICKUP", r.Pos, r.Block, r.Item, r.Count, r.ID))
	return *r, nil
}

func (s *Store) Rubble(id string) (Rubble, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rubble[id]
	if !ok {
		return Rubble{}, false
	}
	return *r, true
}

// RubbleAt lists the piles on pos sorted by id.
func (s *Store) RubbleAt(pos model.Vec3i) []Rubble {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.rubbleAt[pos]
	out := make([]Rubble, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.rubble[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
