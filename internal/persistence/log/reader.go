package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"voxelmine.ai/internal/sim/model"
)

// AuditFiles lists the hourly audit files under dataDir, oldest first.
func AuditFiles(dataDir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dataDir, "audit", "audit-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadAudit decodes every entry of one audit file in order and stops at the
// first error fn returns.
func ReadAudit(path string, fn func(model.AuditEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e model.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
