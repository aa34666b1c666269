package world

import (
	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/catalogs"
	"voxelmine.ai/internal/sim/mining"
	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/model"
	"voxelmine.ai/internal/sim/skills"
)

// blockElements exposes breakable catalog blocks to the mining operation.
type blockElements struct{ cats *catalogs.Catalogs }

func (b blockElements) Element(blockType string) (mining.ElementDef, bool) {
	def, ok := b.cats.Block(blockType)
	if !ok || !def.Breakable {
		return mining.ElementDef{}, false
	}
	return mining.ElementDef{Hardness: def.Hardness, Item: def.DropsItem}, true
}

// rewards shows item display names in UI notifications.
type rewards struct {
	book *skills.Book
	cats *catalogs.Catalogs
}

func (r rewards) AwardExperience(actor string, amount float64, label string) {
	r.book.AwardExperience(actor, amount, label)
}

func (r rewards) NotifyUI(actor, event, label string) {
	r.book.NotifyUI(actor, event, r.cats.DisplayName(label))
}

// auditObserver records drop decisions next to the terrain's own audit trail.
type auditObserver struct{ w *World }

func (auditObserver) Strike(string, model.Element, float64)   {}
func (auditObserver) Committed(string, int, error)            {}
func (auditObserver) BrokeUp(string, model.Standalone, error) {}

func (o auditObserver) Dropped(actor string, el model.Element, out drops.Outcome) {
	_ = o.w.WriteAudit(model.AuditEntry{
		Actor:  actor,
		Action: "DROP",
		Pos:    el.Pos.ToArray(),
		Block:  el.Type,
		Item:   out.Item,
		Count:  out.Quantity,
		Reason: out.Kind.String(),
	})
	if out.Kind == drops.AutoCollected {
		o.w.Emit(actor, protocol.Event{
			"type":  "AUTO_COLLECTED",
			"item":  out.Item,
			"count": out.Quantity,
		})
	}
}
