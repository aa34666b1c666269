package terrain

import "voxelmine.ai/internal/sim/model"

// Gen describes a generated slab of terrain: a solid floor, stone layers and
// ore veins, capped with a surface layer.
type Gen struct {
	Seed   int64
	Size   int
	Height int

	Floor   string
	Stone   string
	Surface string
	// Ores are tried in order; earlier entries are rarer.
	Ores []string
	// VeinPermille is the chance of a 4x4x4 region holding a vein of an ore.
	VeinPermille uint64
}

// Generate fills the store deterministically from g.Seed. Existing blocks in
// the slab are overwritten.
func (s *Store) Generate(g Gen) {
	if g.Size <= 0 || g.Height <= 0 {
		return
	}
	if g.VeinPermille == 0 {
		g.VeinPermille = 120
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for y := 0; y < g.Height; y++ {
		for z := 0; z < g.Size; z++ {
			for x := 0; x < g.Size; x++ {
				p := model.Vec3i{X: x, Y: y, Z: z}
				s.setBlockLocked(p, g.blockAt(x, y, z))
			}
		}
	}
}

func (g Gen) blockAt(x, y, z int) string {
	switch {
	case y == 0 && g.Floor != "":
		return g.Floor
	case y == g.Height-1 && g.Surface != "":
		return g.Surface
	}
	for i, ore := range g.Ores {
		seed := g.Seed + int64(101+i)
		region := hash3(seed, floorDiv(x, 4), floorDiv(y, 4), floorDiv(z, 4))
		if region%1000 >= g.VeinPermille>>uint(len(g.Ores)-1-i) {
			continue
		}
		// Roughly half of the cells in a vein region carry ore.
		if hash3(seed, x, y, z)%2 == 0 {
			return ore
		}
	}
	return g.Stone
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
