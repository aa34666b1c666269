package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	persistlog "voxelmine.ai/internal/persistence/log"
	"voxelmine.ai/internal/sim/model"
)

func main() {
	var (
		dataDir = flag.String("data", "", "world data dir containing audit/audit-*.jsonl.zst")
		actor   = flag.String("actor", "", "only count entries for this agent (optional)")
	)
	flag.Parse()

	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "missing -data")
		os.Exit(2)
	}

	files, err := persistlog.AuditFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit files:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no audit files found in", *dataDir)
		os.Exit(1)
	}

	r := newReplayer(*actor)
	for _, path := range files {
		if err := persistlog.ReadAudit(path, r.apply); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	actions := make([]string, 0, len(r.counts))
	for a := range r.counts {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	for _, a := range actions {
		fmt.Printf("%-16s %d\n", a, r.counts[a])
	}
	fmt.Printf("replay ok: files=%d entries=%d runs=%d rubble_outstanding=%d\n",
		len(files), r.entries, r.runs, r.outstanding())
}

type cellItem struct {
	pos  [3]int
	item string
}

// replayer folds the audit trail back into per-action counts and a rubble
// ledger. Sequence numbers restart at 1 whenever the server restarts.
type replayer struct {
	actor string

	lastSeq uint64
	runs    int
	entries int
	counts  map[string]int
	rubble  map[cellItem]int
}

func newReplayer(actor string) *replayer {
	return &replayer{
		actor:  actor,
		counts: map[string]int{},
		rubble: map[cellItem]int{},
	}
}

func (r *replayer) apply(e model.AuditEntry) error {
	switch {
	case e.Seq == 1:
		r.runs++
	case r.runs == 0:
		return fmt.Errorf("seq %d: trail does not start at 1", e.Seq)
	case e.Seq != r.lastSeq+1:
		return fmt.Errorf("seq gap: %d after %d", e.Seq, r.lastSeq)
	}
	r.lastSeq = e.Seq
	r.entries++

	// The ledger always covers every actor: pieces spawned by one agent may be
	// picked up by another.
	key := cellItem{pos: e.Pos, item: e.Item}
	switch e.Action {
	case "RUBBLE_SPAWN":
		r.rubble[key] += e.Count
	case "RUBBLE_BREAKUP", "RUBBLE_PICKUP":
		r.rubble[key] -= e.Count
		if r.rubble[key] < 0 {
			return fmt.Errorf("seq %d: %s of %d %s at %v without matching spawn", e.Seq, e.Action, e.Count, e.Item, e.Pos)
		}
	}

	if r.actor == "" || e.Actor == r.actor {
		r.counts[e.Action]++
	}
	return nil
}

func (r *replayer) outstanding() int {
	n := 0
	for _, c := range r.rubble {
		n += c
	}
	return n
}
