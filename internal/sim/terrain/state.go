package terrain

import (
	"sort"

	"voxelmine.ai/internal/sim/model"
)

type Cell struct {
	Pos   model.Vec3i
	Block string
}

type WearCell struct {
	Pos    model.Vec3i
	Damage float64
}

// State is a point-in-time copy of everything the store holds. Slices are
// sorted by position (rubble by ID) so equal stores export equal states.
type State struct {
	Blocks    []Cell
	Wear      []WearCell
	Protected []model.Vec3i
	Rubble    []Rubble
}

func (s *Store) Export() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st State
	for p, b := range s.blocks {
		st.Blocks = append(st.Blocks, Cell{Pos: p, Block: b})
	}
	sort.Slice(st.Blocks, func(i, j int) bool { return st.Blocks[i].Pos.Less(st.Blocks[j].Pos) })
	for p, d := range s.wear {
		st.Wear = append(st.Wear, WearCell{Pos: p, Damage: d})
	}
	sort.Slice(st.Wear, func(i, j int) bool { return st.Wear[i].Pos.Less(st.Wear[j].Pos) })
	for p := range s.protected {
		st.Protected = append(st.Protected, p)
	}
	sort.Slice(st.Protected, func(i, j int) bool { return st.Protected[i].Less(st.Protected[j]) })
	for _, r := range s.rubble {
		st.Rubble = append(st.Rubble, *r)
	}
	sort.Slice(st.Rubble, func(i, j int) bool { return st.Rubble[i].ID < st.Rubble[j].ID })
	return st
}

// Import replaces the store's contents with st. Nothing is audited.
func (s *Store) Import(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks = make(map[model.Vec3i]string, len(st.Blocks))
	s.wear = map[model.Vec3i]float64{}
	s.protected = map[model.Vec3i]bool{}
	s.rubble = map[string]*Rubble{}
	s.rubbleAt = map[model.Vec3i][]string{}

	for _, c := range st.Blocks {
		if c.Block != "" && c.Block != "AIR" {
			s.blocks[c.Pos] = c.Block
		}
	}
	for _, w := range st.Wear {
		if _, ok := s.blocks[w.Pos]; ok && w.Damage > 0 {
			s.wear[w.Pos] = w.Damage
		}
	}
	for _, p := range st.Protected {
		s.protected[p] = true
	}
	for i := range st.Rubble {
		r := st.Rubble[i]
		s.rubble[r.ID] = &r
		s.rubbleAt[r.Pos] = append(s.rubbleAt[r.Pos], r.ID)
	}
}
