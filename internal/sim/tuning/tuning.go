package tuning

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. VM_AUTO_COLLECT_LEVEL.
const EnvPrefix = "VM_"

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" env:"PROTOCOL_VERSION"`

	WorldSize   int `yaml:"world_size" env:"WORLD_SIZE"`
	WorldHeight int `yaml:"world_height" env:"WORLD_HEIGHT"`

	Mining    Mining    `yaml:"mining"`
	Skills    Skills    `yaml:"skills"`
	Inventory Inventory `yaml:"inventory"`
}

type Mining struct {
	AutoCollect      bool `yaml:"auto_collect" env:"AUTO_COLLECT"`
	AutoCollectLevel int  `yaml:"auto_collect_level" env:"AUTO_COLLECT_LEVEL"`
	LuckyBreak       bool `yaml:"lucky_break" env:"LUCKY_BREAK"`
	LuckyBreakLevel  int  `yaml:"lucky_break_level" env:"LUCKY_BREAK_LEVEL"`

	MaxAmountPerBlock  int     `yaml:"max_amount_per_block" env:"MAX_AMOUNT_PER_BLOCK"`
	ExperiencePerBlock float64 `yaml:"experience_per_block" env:"EXPERIENCE_PER_BLOCK"`
	Skill              string  `yaml:"skill" env:"MINING_SKILL"`

	ClusterTags        []string `yaml:"cluster_tags" env:"CLUSTER_TAGS" envSeparator:","`
	ForgetOnFailedDrop bool     `yaml:"forget_on_failed_drop" env:"FORGET_ON_FAILED_DROP"`

	MaxRubblePerCell int     `yaml:"max_rubble_per_cell" env:"MAX_RUBBLE_PER_CELL"`
	RubbleDurability float64 `yaml:"rubble_durability" env:"RUBBLE_DURABILITY"`
	SpawnFailChance  float64 `yaml:"spawn_fail_chance" env:"SPAWN_FAIL_CHANCE"`
}

type Skills struct {
	PerkDamagePerLevel float64 `yaml:"perk_damage_per_level" env:"PERK_DAMAGE_PER_LEVEL"`
	XPPerLevel         float64 `yaml:"xp_per_level" env:"XP_PER_LEVEL"`
	MaxLevel           int     `yaml:"max_level" env:"MAX_LEVEL"`
}

type Inventory struct {
	Slots int `yaml:"slots" env:"INVENTORY_SLOTS"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		WorldSize:       32,
		WorldHeight:     16,
		Mining: Mining{
			AutoCollect:        true,
			AutoCollectLevel:   7,
			LuckyBreak:         true,
			LuckyBreakLevel:    3,
			MaxAmountPerBlock:  4,
			ExperiencePerBlock: 1,
			Skill:              "MINING",
			ClusterTags:        []string{"minable", "minable_rubble"},
			MaxRubblePerCell:   4,
			RubbleDurability:   3,
			SpawnFailChance:    0,
		},
		Skills: Skills{
			PerkDamagePerLevel: 0.5,
			XPPerLevel:         10,
			MaxLevel:           10,
		},
		Inventory: Inventory{Slots: 24},
	}
}

// Load reads path on top of Defaults, then applies VM_* environment overrides.
// A missing file is reported as such; callers may fall back to Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := ApplyEnv(&t); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// ApplyEnv overrides fields whose VM_* variable is set; unset variables leave
// the current value alone.
func ApplyEnv(t *Tuning) error {
	if err := env.ParseWithOptions(t, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("tuning env: %w", err)
	}
	return nil
}

func (t Tuning) Validate() error {
	var errs []error
	m := t.Mining
	if m.AutoCollectLevel < 0 {
		errs = append(errs, fmt.Errorf("mining.auto_collect_level must be >= 0"))
	}
	if m.LuckyBreakLevel < 0 {
		errs = append(errs, fmt.Errorf("mining.lucky_break_level must be >= 0"))
	}
	if m.MaxAmountPerBlock < 1 {
		errs = append(errs, fmt.Errorf("mining.max_amount_per_block must be >= 1"))
	}
	if m.ExperiencePerBlock < 0 {
		errs = append(errs, fmt.Errorf("mining.experience_per_block must be >= 0"))
	}
	if m.Skill == "" {
		errs = append(errs, fmt.Errorf("mining.skill is required"))
	}
	if m.MaxRubblePerCell < 1 {
		errs = append(errs, fmt.Errorf("mining.max_rubble_per_cell must be >= 1"))
	}
	if m.RubbleDurability <= 0 {
		errs = append(errs, fmt.Errorf("mining.rubble_durability must be > 0"))
	}
	if m.SpawnFailChance < 0 || m.SpawnFailChance > 1 {
		errs = append(errs, fmt.Errorf("mining.spawn_fail_chance must be within [0,1]"))
	}
	if t.Skills.XPPerLevel <= 0 {
		errs = append(errs, fmt.Errorf("skills.xp_per_level must be > 0"))
	}
	if t.Skills.MaxLevel < 0 {
		errs = append(errs, fmt.Errorf("skills.max_level must be >= 0"))
	}
	if t.Inventory.Slots < 1 {
		errs = append(errs, fmt.Errorf("inventory.slots must be >= 1"))
	}
	if t.WorldSize < 1 || t.WorldHeight < 1 {
		errs = append(errs, fmt.Errorf("world_size and world_height must be >= 1"))
	}
	return errors.Join(errs...)
}
