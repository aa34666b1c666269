// Package snapshot persists the terrain between server runs.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelmine.ai/internal/sim/encoding"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/terrain"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	WorldID  string `json:"world_id"`
	Time     string `json:"time"`
	AuditSeq uint64 `json:"audit_seq"`
}

// MaxVolume bounds the dense block volume. Terrain whose bounding box is
// larger is stored as a sparse cell list instead.
const MaxVolume = 1 << 24

// SnapshotV1 stores blocks as one palette-indexed RLE volume covering the
// bounding box of every non-air cell, or as Cells when that box exceeds
// MaxVolume. Palette index 0 is air.
type SnapshotV1 struct {
	Header Header

	Seed    int64
	Palette []string
	Min     [3]int
	Size    [3]int
	Blocks  string
	Cells   []CellV1

	Wear      []WearV1
	Protected [][3]int
	Rubble    []RubbleV1
}

type CellV1 struct {
	Pos [3]int
	ID  uint16
}

type WearV1 struct {
	Pos    [3]int
	Damage float64
}

type RubbleV1 struct {
	ID         string
	Pos        [3]int
	Block      string
	Item       string
	Count      int
	Durability float64
	Breakable  bool
}

// Build captures st. Block ids missing from palette are appended to it; more
// than 65536 palette entries is an error.
func Build(h Header, seed int64, palette []string, st terrain.State) (SnapshotV1, error) {
	h.Version = Version
	snap := SnapshotV1{Header: h, Seed: seed}

	pal := append([]string{"AIR"}, withoutAir(palette)...)
	index := make(map[string]int, len(pal))
	for i, id := range pal {
		index[id] = i
	}
	for _, c := range st.Blocks {
		if _, ok := index[c.Block]; !ok {
			index[c.Block] = len(pal)
			pal = append(pal, c.Block)
		}
	}
	if len(pal) > math.MaxUint16+1 {
		return SnapshotV1{}, fmt.Errorf("snapshot: %d block types exceed the palette limit", len(pal))
	}

	if len(st.Blocks) > 0 {
		lo, hi := st.Blocks[0].Pos, st.Blocks[0].Pos
		for _, c := range st.Blocks[1:] {
			lo = model.Vec3i{X: min(lo.X, c.Pos.X), Y: min(lo.Y, c.Pos.Y), Z: min(lo.Z, c.Pos.Z)}
			hi = model.Vec3i{X: max(hi.X, c.Pos.X), Y: max(hi.Y, c.Pos.Y), Z: max(hi.Z, c.Pos.Z)}
		}
		size := [3]int{hi.X - lo.X + 1, hi.Y - lo.Y + 1, hi.Z - lo.Z + 1}

		if volume(size) <= MaxVolume {
			snap.Min = lo.ToArray()
			snap.Size = size
			ids := make([]uint16, volume(size))
			for _, c := range st.Blocks {
				ids[snap.offset(c.Pos)] = uint16(index[c.Block])
			}
			snap.Blocks = encoding.EncodeRLE(ids)
		} else {
			snap.Cells = make([]CellV1, 0, len(st.Blocks))
			for _, c := range st.Blocks {
				snap.Cells = append(snap.Cells, CellV1{Pos: c.Pos.ToArray(), ID: uint16(index[c.Block])})
			}
		}
	}
	snap.Palette = pal

	for _, w := range st.Wear {
		snap.Wear = append(snap.Wear, WearV1{Pos: w.Pos.ToArray(), Damage: w.Damage})
	}
	for _, p := range st.Protected {
		snap.Protected = append(snap.Protected, p.ToArray())
	}
	for _, r := range st.Rubble {
		snap.Rubble = append(snap.Rubble, RubbleV1{
			ID:         r.ID,
			Pos:        r.Pos.ToArray(),
			Block:      r.Block,
			Item:       r.Item,
			Count:      r.Count,
			Durability: r.Durability,
			Breakable:  r.Breakable,
		})
	}
	return snap, nil
}

// volume is the cell count of size, or MaxVolume+1 when it is out of range.
func volume(size [3]int) int {
	v := 1
	for _, n := range size {
		if n <= 0 || n > MaxVolume || v*n > MaxVolume {
			return MaxVolume + 1
		}
		v *= n
	}
	return v
}

// Terrain decodes the snapshot back into a terrain state.
func (s SnapshotV1) Terrain() (terrain.State, error) {
	var st terrain.State
	if s.Header.Version != Version {
		return st, fmt.Errorf("snapshot: unsupported version %d", s.Header.Version)
	}
	if s.Blocks != "" {
		want := volume(s.Size)
		if want > MaxVolume {
			return st, fmt.Errorf("snapshot: volume %v exceeds %d cells", s.Size, MaxVolume)
		}
		ids, err := encoding.DecodeRLE(s.Blocks, want)
		if err != nil {
			return st, fmt.Errorf("snapshot: blocks: %w", err)
		}
		if len(ids) != want {
			return st, fmt.Errorf("snapshot: blocks: got %d cells, want %d", len(ids), want)
		}
		for i, id := range ids {
			if id == 0 {
				continue
			}
			if int(id) >= len(s.Palette) {
				return st, fmt.Errorf("snapshot: palette id %d out of range", id)
			}
			st.Blocks = append(st.Blocks, terrain.Cell{Pos: s.pos(i), Block: s.Palette[id]})
		}
	}
	for _, c := range s.Cells {
		if c.ID == 0 || int(c.ID) >= len(s.Palette) {
			return st, fmt.Errorf("snapshot: palette id %d out of range", c.ID)
		}
		st.Blocks = append(st.Blocks, terrain.Cell{Pos: model.FromArray(c.Pos), Block: s.Palette[c.ID]})
	}
	sort.Slice(st.Blocks, func(i, j int) bool { return st.Blocks[i].Pos.Less(st.Blocks[j].Pos) })
	for _, w := range s.Wear {
		st.Wear = append(st.Wear, terrain.WearCell{Pos: model.FromArray(w.Pos), Damage: w.Damage})
	}
	for _, p := range s.Protected {
		st.Protected = append(st.Protected, model.FromArray(p))
	}
	for _, r := range s.Rubble {
		st.Rubble = append(st.Rubble, terrain.Rubble{
			ID:         r.ID,
			Pos:        model.FromArray(r.Pos),
			Block:      r.Block,
			Item:       r.Item,
			Count:      r.Count,
			Durability: r.Durability,
			Breakable:  r.Breakable,
		})
	}
	return st, nil
}

// Volume order is x-major, then y, then z.
func (s SnapshotV1) offset(p model.Vec3i) int {
	x, y, z := p.X-s.Min[0], p.Y-s.Min[1], p.Z-s.Min[2]
	return (x*s.Size[1]+y)*s.Size[2] + z
}

func (s SnapshotV1) pos(i int) model.Vec3i {
	z := i % s.Size[2]
	i /= s.Size[2]
	y := i % s.Size[1]
	x := i / s.Size[1]
	return model.Vec3i{X: s.Min[0] + x, Y: s.Min[1] + y, Z: s.Min[2] + z}
}

func withoutAir(palette []string) []string {
	out := make([]string, 0, len(palette))
	for _, id := range palette {
		if id != "AIR" && id != "" {
			out = append(out, id)
		}
	}
	return out
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is for tools that only peek; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// Latest returns the newest <seq>.snap.zst in dir, or "" when there is none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq >= bestSeq {
			best = filepath.Join(dir, name)
			bestSeq = seq
		}
	}
	return best
}
