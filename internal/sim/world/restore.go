package world

import (
	"fmt"

	"voxelmine.ai/internal/sim/terrain"
)

// AuditSeq is the sequence number of the last audit entry written.
func (w *World) AuditSeq() uint64 { return w.auditSeq.Load() }

// Restore replaces the terrain with st and continues audit numbering after
// auditSeq. Every block must be known to the catalogs.
func (w *World) Restore(st terrain.State, auditSeq uint64) error {
	for _, c := range st.Blocks {
		if _, ok := w.catalogs.Block(c.Block); !ok {
			return fmt.Errorf("world: restore: unknown block %s at %v", c.Block, c.Pos)
		}
	}
	w.terrain.Import(st)
	w.auditSeq.Store(auditSeq)
	w.log.Printf("restored %d blocks, %d rubble (audit seq %d)", len(st.Blocks), len(st.Rubble), auditSeq)
	return nil
}
