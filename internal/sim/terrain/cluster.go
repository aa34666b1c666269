package terrain

import (
	"sort"

	"voxelmine.ai/internal/sim/model"
)

// ResolveCluster walks face-adjacent cells of the clicked block's type,
// breadth first, collecting at most limit cells. The clicked block must carry
// one of tags. The result is ordered ascending by (X, Y, Z).
func (s *Store) ResolveCluster(target model.Target, tags []string, limit int) ([]model.Element, bool) {
	if !target.HasPos {
		return nil, false
	}
	if limit < 1 {
		limit = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start, ok := s.blocks[target.Pos]
	if !ok || !s.matchesAny(start, tags) {
		return nil, false
	}

	seen := map[model.Vec3i]bool{target.Pos: true}
	queue := []model.Vec3i{target.Pos}
	var out []model.Element
	for len(queue) > 0 && len(out) < limit {
		p := queue[0]
		queue = queue[1:]
		out = append(out, model.Element{Type: start, Pos: p})
		for _, d := range model.Neighbors6 {
			n := p.Add(d)
			if seen[n] || s.blocks[n] != start {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out, true
}

func (s *Store) matchesAny(block string, tags []string) bool {
	if s.cat == nil {
		return false
	}
	for _, t := range tags {
		if s.cat.HasTag(block, t) {
			return true
		}
	}
	return false
}

// ResolveStandalone returns the rubble named by target if it can still be
// struck apart.
func (s *Store) ResolveStandalone(target model.Target) (model.Standalone, bool) {
	if target.RubbleID == "" {
		return model.Standalone{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rubble[target.RubbleID]
	if !ok || !r.Breakable {
		return model.Standalone{}, false
	}
	return model.Standalone{ID: r.ID, Pos: r.Pos}, true
}
