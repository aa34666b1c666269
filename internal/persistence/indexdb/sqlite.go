package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelmine.ai/internal/sim/catalogs"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable copy of the audit trail. Writes are queued to a
// single writer goroutine and dropped when it falls behind; the JSONL audit
// files remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// sendMu is held for reading across the closed check and the send so
	// Close cannot close ch in between.
	sendMu sync.RWMutex
	closed bool

	dropAudit atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
)

type req struct {
	kind  reqKind
	audit model.AuditEntry
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropAuditTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Cluster strikes emit several entries per click; leave room for bursts.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// TODO: key audits by (run, seq); seq restarts when the server
		// starts without a snapshot and replaces the previous run's rows.
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY,
			time TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			block TEXT,
			item TEXT,
			count INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_seq ON audits(actor, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_seq ON audits(x, z, y, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action ON audits(action);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteAudit(entry model.AuditEntry) error {
	if s == nil {
		return nil
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropAuditTotal: s.dropAudit.Load(),
	}
}

// UpsertCatalogs stores the catalogs and tuning the server runs with, so audit
// rows can be interpreted later.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	read := func(name, file, digest string) {
		if configDir == "" {
			return
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	read("blocks_defs", "blocks.json", cats.Blocks.DefsDigest)
	read("items_defs", "items.json", cats.Items.DefsDigest)
	read("tools", "tools.json", cats.Tools.Digest)
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(seq,time,actor,action,x,y,z,block,item,count,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				if _, err := tx.Stmt(insertAudit).Exec(
					int64(a.Seq),
					a.Time,
					a.Actor,
					a.Action,
					a.Pos[0], a.Pos[1], a.Pos[2],
					a.Block,
					a.Item,
					a.Count,
					a.Reason,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}
