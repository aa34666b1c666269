package indexdb

import (
	"context"

	"voxelmine.ai/internal/sim/model"
)

// ActionCounts counts indexed audit entries per action, for one actor or for
// everyone when actor is empty.
func (s *SQLiteIndex) ActionCounts(ctx context.Context, actor string) (map[string]int, error) {
	q := `SELECT action, COUNT(*) FROM audits GROUP BY action`
	args := []any{}
	if actor != "" {
		q = `SELECT action, COUNT(*) FROM audits WHERE actor = ? GROUP BY action`
		args = append(args, actor)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[action] = n
	}
	return out, rows.Err()
}

// AuditsAt returns the entries recorded at pos in sequence order.
func (s *SQLiteIndex) AuditsAt(ctx context.Context, pos model.Vec3i) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq,time,actor,action,block,item,count,reason FROM audits WHERE x = ? AND z = ? AND y = ? ORDER BY seq`,
		pos.X, pos.Z, pos.Y)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		e := model.AuditEntry{Pos: pos.ToArray()}
		var seq int64
		if err := rows.Scan(&seq, &e.Time, &e.Actor, &e.Action, &e.Block, &e.Item, &e.Count, &e.Reason); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		out = append(out, e)
	}
	return out, rows.Err()
}
