package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"voxelmine.ai/internal/persistence/indexdb"
)

func openRuntimeIndex(worldDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported VM_INDEX_BACKEND: %s", backend)
	}
}

func registerIndexStats(reg prometheus.Registerer, idx *indexdb.SQLiteIndex) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "voxelmine",
			Subsystem: "index",
			Name:      "queue_depth",
			Help:      "Audit entries waiting for the sqlite writer.",
		}, func() float64 { return float64(idx.Stats().QueueDepth) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "voxelmine",
			Subsystem: "index",
			Name:      "queue_capacity",
			Help:      "Capacity of the sqlite writer queue.",
		}, func() float64 { return float64(idx.Stats().QueueCapacity) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "voxelmine",
			Subsystem: "index",
			Name:      "dropped_audits_total",
			Help:      "Audit entries dropped because the sqlite writer fell behind.",
		}, func() float64 { return float64(idx.Stats().DropAuditTotal) }),
	)
}
