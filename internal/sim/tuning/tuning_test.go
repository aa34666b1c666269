package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	assert.True(t, d.Mining.AutoCollect)
	assert.Equal(t, 7, d.Mining.AutoCollectLevel)
	assert.True(t, d.Mining.LuckyBreak)
	assert.Equal(t, 3, d.Mining.LuckyBreakLevel)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	p := writeTuning(t, `
mining:
  auto_collect: false
  lucky_break_level: 0
  max_amount_per_block: 6
skills:
  xp_per_level: 25
`)
	tu, err := Load(p)
	require.NoError(t, err)
	assert.False(t, tu.Mining.AutoCollect)
	assert.Equal(t, 0, tu.Mining.LuckyBreakLevel)
	assert.Equal(t, 6, tu.Mining.MaxAmountPerBlock)
	assert.Equal(t, 25.0, tu.Skills.XPPerLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 7, tu.Mining.AutoCollectLevel)
	assert.Equal(t, "MINING", tu.Mining.Skill)
}

func TestLoadEnvOverrides(t *testing.T) {
	p := writeTuning(t, "mining:\n  auto_collect_level: 5\n")
	t.Setenv("VM_AUTO_COLLECT_LEVEL", "2")
	t.Setenv("VM_LUCKY_BREAK", "false")
	t.Setenv("VM_CLUSTER_TAGS", "minable")

	tu, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 2, tu.Mining.AutoCollectLevel)
	assert.False(t, tu.Mining.LuckyBreak)
	assert.Equal(t, []string{"minable"}, tu.Mining.ClusterTags)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	p := writeTuning(t, "mining:\n  max_amount_per_block: 0\n  spawn_fail_chance: 2\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_amount_per_block")
	assert.Contains(t, err.Error(), "spawn_fail_chance")
}

func TestLoadBadYAML(t *testing.T) {
	p := writeTuning(t, "mining: [")
	_, err := Load(p)
	assert.ErrorContains(t, err, "tuning.yaml")
}

func TestLoadMissingFile(t *testing.T) {
	tu, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, Defaults().Mining, tu.Mining)
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("VM_MAX_LEVEL", "lots")
	tu := Defaults()
	assert.Error(t, ApplyEnv(&tu))
}
