package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelmine.ai/internal/observability/metrics"
	persistlog "voxelmine.ai/internal/persistence/log"
	"voxelmine.ai/internal/persistence/snapshot"
	"voxelmine.ai/internal/sim/catalogs"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/tuning"
	"voxelmine.ai/internal/sim/world"
	"voxelmine.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		worldID     = flag.String("world", "world_1", "world id")
		seed        = flag.Int64("seed", 1337, "terrain seed")
		configDir   = flag.String("configs", "./configs", "config directory")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		defaultTool = flag.String("default_tool", "WOOD_PICKAXE", "tool given to agents that join without one")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite audit index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
		if err := tuning.ApplyEnv(&tune); err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// Optional read-model index (the JSONL audit files stay authoritative).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()
	audit := []world.AuditWriter{auditLog}
	if idx != nil {
		audit = append(audit, idx)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if idx != nil {
		registerIndexStats(reg, idx)
	}

	snapDir := filepath.Join(worldDir, "snapshots")
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(snapDir)
	}

	cfg := world.ConfigFromTuning(tune, *seed, *defaultTool)
	var snap snapshot.SnapshotV1
	if snapshotToLoad != "" {
		snap, err = snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		cfg.Seed = snap.Seed
		cfg.Gen = nil
	}

	w, err := world.New(cfg, cats, world.Options{
		Logger:  logger,
		Audit:   audit,
		Metrics: metrics.New(reg),
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if snapshotToLoad != "" {
		st, err := snap.Terrain()
		if err != nil {
			logger.Fatalf("decode snapshot: %v", err)
		}
		if err := w.Restore(st, snap.Header.AuditSeq); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s", filepath.Base(snapshotToLoad))
	}
	logger.Printf("world %s ready: seed=%d blocks=%d", *worldID, cfg.Seed, w.Terrain().BlockCount())

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	enableAdminHTTP := envBool("VM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VM_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP && idx != nil {
		// Local-only read endpoints over the audit index.
		mux.HandleFunc("/admin/v1/audit/counts", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			counts, err := idx.ActionCounts(r.Context(), r.URL.Query().Get("actor"))
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(counts)
		})
		mux.HandleFunc("/admin/v1/audit/at", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			pos, err := parsePos(r.URL.Query().Get("pos"))
			if err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			entries, err := idx.AuditsAt(r.Context(), pos)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(entries)
		})
	} else {
		logger.Printf("admin endpoints disabled")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VM_ENABLE_PPROF_HTTP=false)")
	}
	wsSrv := ws.NewServer(w, logger)
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// Shutdown leaves hijacked websocket connections alone; stop them before
	// the terrain is captured and the audit sinks close.
	wsSrv.Close()

	path, err := writeSnapshot(snapDir, *worldID, cfg.Seed, cats, w)
	if err != nil {
		logger.Printf("snapshot write: %v", err)
		return
	}
	logger.Printf("wrote snapshot %s", path)
}

func writeSnapshot(dir, worldID string, seed int64, cats *catalogs.Catalogs, w *world.World) (string, error) {
	seq := w.AuditSeq()
	snap, err := snapshot.Build(snapshot.Header{
		WorldID:  worldID,
		Time:     time.Now().UTC().Format(time.RFC3339),
		AuditSeq: seq,
	}, seed, cats.Blocks.Palette, w.Terrain().Export())
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.snap.zst", seq))
	return path, snapshot.WriteSnapshot(path, snap)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// parsePos reads "x,y,z".
func parsePos(s string) (model.Vec3i, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return model.Vec3i{}, strconv.ErrSyntax
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return model.Vec3i{}, err
		}
		v[i] = n
	}
	return model.FromArray(v), nil
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
