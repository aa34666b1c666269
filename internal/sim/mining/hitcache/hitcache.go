// Package hitcache remembers how much damage an actor has dealt to blocks that
// are still standing.
//
// A Cache belongs to exactly one actor session and is not safe for concurrent
// use; the owner serializes access. Entries are keyed by position and carry the
// block type they were recorded for. A hit on a position whose recorded type no
// longer matches (the block was replaced or removed by someone else) starts a
// fresh total. Abandoned entries stay until they are overwritten, forgotten, or
// the session ends.
package hitcache

import "voxelmine.ai/internal/sim/model"

type entry struct {
	blockType string
	damage    float64
}

type Cache struct {
	hits map[model.Vec3i]entry
}

func New() *Cache {
	return &Cache{hits: map[model.Vec3i]entry{}}
}

// AddDamage adds amount to the total recorded for (blockType, pos) and returns
// the new total. Negative and NaN amounts are clamped to zero, so the total
// never decreases.
func (c *Cache) AddDamage(blockType string, pos model.Vec3i, amount float64) float64 {
	if !(amount > 0) {
		amount = 0
	}
	if c.hits == nil {
		c.hits = map[model.Vec3i]entry{}
	}
	e, ok := c.hits[pos]
	if !ok || e.blockType != blockType {
		e = entry{blockType: blockType}
	}
	e.damage += amount
	c.hits[pos] = e
	return e.damage
}

// Damage reports the pending total for (blockType, pos), or 0 when nothing is
// recorded for that block.
func (c *Cache) Damage(blockType string, pos model.Vec3i) float64 {
	e, ok := c.hits[pos]
	if !ok || e.blockType != blockType {
		return 0
	}
	return e.damage
}

// Forget drops whatever is recorded at pos. Forgetting an unknown position is a
// no-op.
func (c *Cache) Forget(pos model.Vec3i) {
	delete(c.hits, pos)
}

func (c *Cache) Len() int { return len(c.hits) }

// Reset discards every entry.
func (c *Cache) Reset() {
	c.hits = map[model.Vec3i]entry{}
}
