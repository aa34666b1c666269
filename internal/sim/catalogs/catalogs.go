package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
	Tools  ToolCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string   `json:"id"`
	Solid     bool     `json:"solid"`
	Breakable bool     `json:"breakable"`
	Hardness  float64  `json:"hardness,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	DropsItem string   `json:"drops_item,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // "BLOCK","TOOL","MATERIAL"
	DisplayName string `json:"display_name,omitempty"`
	PlaceAs     string `json:"place_as,omitempty"`
	StackMax    int    `json:"stack_max,omitempty"`
	Carried     bool   `json:"carried,omitempty"`
}

type ToolCatalog struct {
	Defs   map[string]ToolDef
	Digest string
}

type ToolDef struct {
	ID          string  `json:"id"`
	Family      string  `json:"family"`
	Tier        int     `json:"tier"`
	Damage      float64 `json:"damage"`
	ClusterSize int     `json:"cluster_size"`
}

const defaultStackMax = 64

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadTools(filepath.Join(configDir, "tools.json"), &c.Tools); err != nil {
		return nil, err
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate("blocks.json", blocksSchema, raw); err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate("items.json", itemsSchema, raw); err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %q", d.ID)
		}
		if d.StackMax == 0 {
			d.StackMax = defaultStackMax
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadTools(path string, out *ToolCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate("tools.json", toolsSchema, raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ToolDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("tools.json: %w", err)
	}
	out.Defs = map[string]ToolDef{}
	for _, d := range defs {
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("tools.json: duplicate id %q", d.ID)
		}
		if d.ClusterSize == 0 {
			d.ClusterSize = 1
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func (c *Catalogs) crossCheck() error {
	for _, id := range c.Blocks.Palette {
		b := c.Blocks.Defs[id]
		if b.DropsItem == "" {
			continue
		}
		if _, ok := c.Items.Defs[b.DropsItem]; !ok {
			return fmt.Errorf("blocks.json: %s drops unknown item %q", b.ID, b.DropsItem)
		}
	}
	for id := range c.Tools.Defs {
		if _, ok := c.Items.Defs[id]; !ok {
			return fmt.Errorf("tools.json: tool %q is not an item", id)
		}
	}
	return nil
}

func filterOut(ids []string, drop string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
