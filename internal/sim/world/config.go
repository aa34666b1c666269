package world

import (
	"voxelmine.ai/internal/sim/terrain"
	"voxelmine.ai/internal/sim/tuning"
)

type WorldConfig struct {
	Seed int64
	// DefaultTool is used when an agent joins without naming one.
	DefaultTool string

	Mining    tuning.Mining
	Skills    tuning.Skills
	Inventory tuning.Inventory

	// Gen, when set, is generated into the terrain on New.
	Gen *terrain.Gen
}

// ConfigFromTuning builds a world config with a generated slab sized by the
// tuning file.
func ConfigFromTuning(t tuning.Tuning, seed int64, defaultTool string) WorldConfig {
	return WorldConfig{
		Seed:        seed,
		DefaultTool: defaultTool,
		Mining:      t.Mining,
		Skills:      t.Skills,
		Inventory:   t.Inventory,
		Gen: &terrain.Gen{
			Seed:    seed,
			Size:    t.WorldSize,
			Height:  t.WorldHeight,
			Floor:   "BEDROCK",
			Stone:   "STONE",
			Surface: "DIRT",
			Ores:    []string{"IRON_ORE", "COAL_ORE"},
		},
	}
}
