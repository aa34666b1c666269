package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "voxelmine.ai/internal/persistence/log"
	"voxelmine.ai/internal/sim/model"
)

func TestReplayer_LedgerAndCounts(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewAuditLogger(dir)
	pos := [3]int{1, 2, 3}
	entries := []model.AuditEntry{
		{Actor: "A1", Action: "JOIN"},
		{Actor: "A1", Action: "BLOCK_DESTROY", Pos: pos, Block: "STONE"},
		{Actor: "A1", Action: "RUBBLE_SPAWN", Pos: pos, Item: "STONE", Count: 3},
		{Actor: "A1", Action: "RUBBLE_BREAKUP", Pos: pos, Item: "STONE", Count: 3},
		{Actor: "A1", Action: "RUBBLE_SPAWN", Pos: pos, Item: "STONE", Count: 1},
		{Actor: "A1", Action: "RUBBLE_SPAWN", Pos: pos, Item: "STONE", Count: 1},
		{Actor: "A1", Action: "RUBBLE_SPAWN", Pos: pos, Item: "STONE", Count: 1},
		{Actor: "A2", Action: "RUBBLE_PICKUP", Pos: pos, Item: "STONE", Count: 1},
	}
	for i, e := range entries {
		e.Seq = uint64(i + 1)
		e.Time = time.Now().UTC().Format(time.RFC3339Nano)
		require.NoError(t, l.WriteAudit(e))
	}
	require.NoError(t, l.Close())

	files, err := persistlog.AuditFiles(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	r := newReplayer("A1")
	for _, f := range files {
		require.NoError(t, persistlog.ReadAudit(f, r.apply))
	}
	assert.Equal(t, len(entries), r.entries)
	assert.Equal(t, 1, r.runs)
	assert.Equal(t, 4, r.counts["RUBBLE_SPAWN"])
	assert.Zero(t, r.counts["RUBBLE_PICKUP"], "counts are filtered by actor")
	assert.Equal(t, 2, r.outstanding())
}

func TestReplayer_RejectsBrokenTrail(t *testing.T) {
	r := newReplayer("")
	assert.Error(t, r.apply(model.AuditEntry{Seq: 5, Action: "JOIN"}), "trail not starting at 1")

	r = newReplayer("")
	require.NoError(t, r.apply(model.AuditEntry{Seq: 1, Action: "JOIN"}))
	assert.Error(t, r.apply(model.AuditEntry{Seq: 3, Action: "JOIN"}), "seq gap")

	r = newReplayer("")
	assert.Error(t, r.apply(model.AuditEntry{Seq: 1, Action: "RUBBLE_PICKUP", Item: "STONE", Count: 1}), "unmatched pickup")

	r = newReplayer("")
	require.NoError(t, r.apply(model.AuditEntry{Seq: 1, Action: "JOIN"}))
	require.NoError(t, r.apply(model.AuditEntry{Seq: 2, Action: "LEAVE"}))
	require.NoError(t, r.apply(model.AuditEntry{Seq: 1, Action: "JOIN"}), "restart")
	assert.Equal(t, 2, r.runs)
}
