package catalogs

// Lookups used by the terrain store and the mining pipeline.

func (c *Catalogs) Block(id string) (BlockDef, bool) {
	d, ok := c.Blocks.Defs[id]
	return d, ok
}

func (c *Catalogs) Breakable(block string) bool { return c.Blocks.Defs[block].Breakable }

func (c *Catalogs) DropItem(block string) string { return c.Blocks.Defs[block].DropsItem }

func (c *Catalogs) HasTag(block, tag string) bool {
	for _, t := range c.Blocks.Defs[block].Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (c *Catalogs) StackMax(item string) int {
	if d, ok := c.Items.Defs[item]; ok && d.StackMax > 0 {
		return d.StackMax
	}
	return defaultStackMax
}

func (c *Catalogs) DisplayName(item string) string {
	if d, ok := c.Items.Defs[item]; ok && d.DisplayName != "" {
		return d.DisplayName
	}
	return item
}

// CanPickaxePickUp reports whether a pickaxe may lift a stack of item: it has
// to be a carried block item whose block is minable.
func (c *Catalogs) CanPickaxePickUp(item string) bool {
	d, ok := c.Items.Defs[item]
	if !ok || d.Kind != "BLOCK" || !d.Carried {
		return false
	}
	block := d.PlaceAs
	if block == "" {
		block = item
	}
	return c.HasTag(block, "minable") || c.HasTag(block, "minable_rubble")
}
