package mining

import (
	"fmt"
	"io"
	"log"

	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/mining/txpack"
	"voxelmine.ai/internal/sim/model"
)

type Config struct {
	// Tags selects which blocks a strike may cluster over.
	Tags []string
	// Skill is the skill whose level gates auto-collect and lucky break.
	Skill              string
	ExperiencePerBlock float64
	Policy             drops.Policy
	// ForgetOnFailedDrop clears the hit cache entry of a destroyed block even
	// when its drop went nowhere.
	ForgetOnFailedDrop bool
}

type Deps struct {
	Geometry  Geometry
	Catalog   Catalog
	Stats     ActorStats
	Inventory drops.Inventory
	Spawner   drops.Spawner
	Rewards   Rewards
	World     World
	Observer  Observer
	Logger    *log.Logger
}

type Operation struct {
	cfg      Config
	geo      Geometry
	catalog  Catalog
	stats    ActorStats
	rewards  Rewards
	world    World
	resolver *drops.Resolver
	obs      Observer
	log      *log.Logger
}

func NewOperation(cfg Config, d Deps) (*Operation, error) {
	if d.Geometry == nil || d.Catalog == nil || d.Stats == nil || d.World == nil {
		return nil, fmt.Errorf("mining: geometry, catalog, stats and world are required")
	}
	if len(cfg.Tags) == 0 {
		cfg.Tags = []string{TagMinable, TagMinableRubble}
	}
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	obs := d.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Operation{
		cfg:      cfg,
		geo:      d.Geometry,
		catalog:  d.Catalog,
		stats:    d.Stats,
		rewards:  d.Rewards,
		world:    d.World,
		resolver: drops.NewResolver(d.Inventory, d.Spawner, cfg.Policy),
		obs:      obs,
		log:      logger,
	}, nil
}

// Execute resolves one strike of tool by actor at target.
//
// The returned error is ErrTargetUnresolved or wraps ErrCommitFailed; the
// report is always populated. Per-element drop failures are reported in
// Report.Drops and never turn into an error.
func (o *Operation) Execute(tool Tool, actor Actor, target model.Target) (Report, error) {
	if actor.Hits == nil {
		return Report{State: StateAborted}, fmt.Errorf("mining: actor %s has no hit cache", actor.ID)
	}
	limit := tool.ClusterSize
	if limit < 1 {
		limit = 1
	}
	if els, ok := o.geo.ResolveCluster(target, o.cfg.Tags, limit); ok && len(els) > 0 {
		return o.executeCluster(tool, actor, els)
	}
	if s, ok := o.geo.ResolveStandalone(target); ok {
		return o.executeStandalone(tool, actor, s)
	}
	return Report{State: StateAborted}, ErrTargetUnresolved
}

func (o *Operation) strikeDamage(tool Tool, actor string) float64 {
	return o.stats.CurrentPerkDamage(actor) + o.stats.CurrentBaseDamage(actor, tool)
}

func (o *Operation) executeCluster(tool Tool, actor Actor, els []model.Element) (Report, error) {
	rep := Report{State: StateTargetResolved}
	pack := txpack.New(o.world)
	var damaged, destroyed []model.Vec3i

	for _, el := range els {
		def, ok := o.catalog.Element(el.Type)
		if !ok {
			o.log.Printf("mining: %s: unknown block type %q at %s, skipped", actor.ID, el.Type, el.Pos)
			continue
		}
		strike := o.strikeDamage(tool, actor.ID)
		total := actor.Hits.AddDamage(el.Type, el.Pos, strike)
		o.obs.Strike(actor.ID, el, total)

		if total >= def.Hardness {
			rep.State = StateDestroyPending
			pack.QueueDestroy(el.Pos, true)
			pack.QueueDeferred(txpack.Effect{
				Kind:      txpack.EffectResolveDrop,
				BlockType: el.Type,
				Pos:       el.Pos,
				Item:      def.Item,
			})
			destroyed = append(destroyed, el.Pos)
			continue
		}
		if rep.State != StateDestroyPending {
			rep.State = StateDamaging
		}
		pack.QueueDamage(el.Pos, strike)
		damaged = append(damaged, el.Pos)
	}

	if pack.Len() == 0 {
		rep.State = StateAborted
		return rep, ErrTargetUnresolved
	}

	effects, err := pack.Commit(actor.ID)
	o.obs.Committed(actor.ID, len(destroyed), err)
	if err != nil {
		rep.State = StateAborted
		return rep, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	rep.State = StateCommitted
	rep.Success = true
	rep.Damaged = damaged
	rep.Destroyed = destroyed

	for _, e := range effects {
		if e.Kind != txpack.EffectResolveDrop {
			continue
		}
		rep.Drops = append(rep.Drops, o.resolveDrop(actor, e))
	}
	return rep, nil
}

func (o *Operation) resolveDrop(actor Actor, e txpack.Effect) ElementDrop {
	el := model.Element{Type: e.BlockType, Pos: e.Pos}
	level := o.stats.SkillLevel(actor.ID, o.cfg.Skill)
	out := o.resolver.Resolve(actor.ID, drops.Element{Type: e.BlockType, Pos: e.Pos, Item: e.Item}, level)
	o.obs.Dropped(actor.ID, el, out)

	res := ElementDrop{Element: el, Outcome: out}
	if !out.Credited() {
		if e.Item != "" {
			res.Err = ErrDropUnresolved
			o.log.Printf("mining: %s: drop of %s at %s unresolved", actor.ID, e.Item, e.Pos)
		}
		if o.cfg.ForgetOnFailedDrop {
			actor.Hits.Forget(e.Pos)
		}
		return res
	}

	if o.rewards != nil {
		o.rewards.AwardExperience(actor.ID, o.cfg.ExperiencePerBlock, experienceLabel(out.Item))
		if out.Kind != drops.AutoCollected {
			o.rewards.NotifyUI(actor.ID, EventRubbleCreated, out.Item)
		}
	}
	actor.Hits.Forget(e.Pos)
	return res
}

func experienceLabel(item string) string {
	if item == "" {
		return "mining"
	}
	return "mining " + item
}

func (o *Operation) executeStandalone(tool Tool, actor Actor, s model.Standalone) (Report, error) {
	rep := Report{State: StateTargetResolved, Standalone: &s}
	pack := txpack.New(o.world)
	pack.QueueRubbleDamage(s.ID, s.Pos, o.strikeDamage(tool, actor.ID))
	rep.State = StateDamaging
	if pack.EarlyResult() {
		rep.State = StateDestroyPending
		pack.QueueDeferred(txpack.Effect{Kind: txpack.EffectBreakup, RubbleID: s.ID, Pos: s.Pos})
	}

	effects, err := pack.Commit(actor.ID)
	o.obs.Committed(actor.ID, 0, err)
	if err != nil {
		rep.State = StateAborted
		return rep, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	rep.State = StateCommitted
	rep.Success = true

	for _, e := range effects {
		if e.Kind != txpack.EffectBreakup {
			continue
		}
		err := o.world.Breakup(actor.ID, e.RubbleID)
		o.obs.BrokeUp(actor.ID, s, err)
		if err != nil {
			o.log.Printf("mining: %s: breakup of %s failed: %v", actor.ID, e.RubbleID, err)
			continue
		}
		rep.Broken = true
	}
	return rep, nil
}
