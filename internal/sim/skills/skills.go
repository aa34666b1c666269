// Package skills tracks per-actor skill experience and turns it into strike
// damage and reward events.
package skills

import (
	"math"
	"sync"

	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/mining"
)

// Emitter queues events for delivery to an actor.
type Emitter interface {
	Emit(actor string, ev protocol.Event)
}

type Config struct {
	// Skill is the skill AwardExperience credits.
	Skill              string
	PerkDamagePerLevel float64
	XPPerLevel         float64
	MaxLevel           int
}

type Book struct {
	mu  sync.Mutex
	cfg Config
	out Emitter
	xp  map[string]map[string]float64
}

func New(cfg Config, out Emitter) *Book {
	if cfg.XPPerLevel <= 0 {
		cfg.XPPerLevel = 1
	}
	return &Book{cfg: cfg, out: out, xp: map[string]map[string]float64{}}
}

func (b *Book) levelFor(xp float64) int {
	lvl := int(math.Floor(xp / b.cfg.XPPerLevel))
	if lvl < 0 {
		lvl = 0
	}
	if b.cfg.MaxLevel > 0 && lvl > b.cfg.MaxLevel {
		lvl = b.cfg.MaxLevel
	}
	return lvl
}

func (b *Book) SkillLevel(actor, skill string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levelFor(b.xp[actor][skill])
}

func (b *Book) XP(actor, skill string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xp[actor][skill]
}

// SetLevel puts the actor at the start of level.
func (b *Book) SetLevel(actor, skill string, level int) {
	if level < 0 {
		level = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.skillsOf(actor)[skill] = float64(level) * b.cfg.XPPerLevel
}

// Forget drops everything recorded for actor.
func (b *Book) Forget(actor string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.xp, actor)
}

func (b *Book) skillsOf(actor string) map[string]float64 {
	m := b.xp[actor]
	if m == nil {
		m = map[string]float64{}
		b.xp[actor] = m
	}
	return m
}

// CurrentPerkDamage is the bonus the actor's skill level adds to every strike.
func (b *Book) CurrentPerkDamage(actor string) float64 {
	return float64(b.SkillLevel(actor, b.cfg.Skill)) * b.cfg.PerkDamagePerLevel
}

func (b *Book) CurrentBaseDamage(actor string, tool mining.Tool) float64 {
	if tool.Damage < 0 {
		return 0
	}
	return tool.Damage
}

func (b *Book) AwardExperience(actor string, amount float64, label string) {
	if amount <= 0 {
		return
	}
	b.mu.Lock()
	skills := b.skillsOf(actor)
	before := b.levelFor(skills[b.cfg.Skill])
	skills[b.cfg.Skill] += amount
	total := skills[b.cfg.Skill]
	after := b.levelFor(total)
	b.mu.Unlock()

	b.emit(actor, protocol.Event{
		"type":   "XP",
		"skill":  b.cfg.Skill,
		"amount": amount,
		"total":  total,
		"label":  label,
	})
	if after > before {
		b.emit(actor, protocol.Event{
			"type":  "LEVEL_UP",
			"skill": b.cfg.Skill,
			"level": after,
		})
	}
}

func (b *Book) NotifyUI(actor, event, label string) {
	b.emit(actor, protocol.Event{"type": event, "label": label})
}

func (b *Book) emit(actor string, ev protocol.Event) {
	if b.out != nil {
		b.out.Emit(actor, ev)
	}
}
