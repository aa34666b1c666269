package model

// Target is what a strike was aimed at. A click on terrain carries a block
// position; a click on a rubble object carries its id. Both may be set when the
// rubble sits on the clicked cell.
type Target struct {
	HasPos   bool
	Pos      Vec3i
	RubbleID string
}

func BlockTarget(pos Vec3i) Target { return Target{HasPos: true, Pos: pos} }

func RubbleTarget(id string) Target { return Target{RubbleID: id} }

// Element is one destructible cell of a resolved cluster.
type Element struct {
	Type string
	Pos  Vec3i
}

// Standalone is a breakable world object that is not part of the block grid.
type Standalone struct {
	ID  string
	Pos Vec3i
}

// AuditEntry records one authoritative world mutation or reward decision.
type AuditEntry struct {
	Seq    uint64 `json:"seq"`
	Time   string `json:"time"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Pos    [3]int `json:"pos"`
	Block  string `json:"block,omitempty"`
	Item   string `json:"item,omitempty"`
	Count  int    `json:"count,omitempty"`
	Reason string `json:"reason,omitempty"`
}
