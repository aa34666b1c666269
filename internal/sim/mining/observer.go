package mining

import (
	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/model"
)

// Observer receives pipeline notifications. Implementations must be cheap;
// they run inline with the operation.
type Observer interface {
	Strike(actor string, el model.Element, total float64)
	Committed(actor string, destroyed int, err error)
	Dropped(actor string, el model.Element, out drops.Outcome)
	BrokeUp(actor string, s model.Standalone, err error)
}

type nopObserver struct{}

func (nopObserver) Strike(string, model.Element, float64)        {}
func (nopObserver) Committed(string, int, error)                 {}
func (nopObserver) Dropped(string, model.Element, drops.Outcome) {}
func (nopObserver) BrokeUp(string, model.Standalone, error)      {}

type multiObserver []Observer

// Observers fans notifications out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nopObserver{}
	}
	return out
}

func (m multiObserver) Strike(actor string, el model.Element, total float64) {
	for _, o := range m {
		o.Strike(actor, el, total)
	}
}

func (m multiObserver) Committed(actor string, destroyed int, err error) {
	for _, o := range m {
		o.Committed(actor, destroyed, err)
	}
}

func (m multiObserver) Dropped(actor string, el model.Element, out drops.Outcome) {
	for _, o := range m {
		o.Dropped(actor, el, out)
	}
}

func (m multiObserver) BrokeUp(actor string, s model.Standalone, err error) {
	for _, o := range m {
		o.BrokeUp(actor, s, err)
	}
}
