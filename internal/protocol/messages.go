package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	// Tool is the pickaxe item the agent swings; empty picks the server default.
	Tool string `json:"tool,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	AgentID         string         `json:"agent_id"`
	SessionID       string         `json:"session_id"`
	Tool            string         `json:"tool"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	BlockPalette DigestRef `json:"block_palette"`
	ItemPalette  DigestRef `json:"item_palette"`
	ToolsDigest  string    `json:"tools_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// MINE (client -> server). Either Pos or RubbleID names the target.
type MineMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Seq             uint64  `json:"seq"`
	Pos             *[3]int `json:"pos,omitempty"`
	RubbleID        string  `json:"rubble_id,omitempty"`
}

// PICKUP (client -> server)
type PickupMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	RubbleID        string `json:"rubble_id"`
}

// ACK (server -> client) answers one MINE or PICKUP.
type AckMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Seq             uint64     `json:"seq"`
	OK              bool       `json:"ok"`
	Code            string     `json:"code,omitempty"`
	Message         string     `json:"message,omitempty"`
	Destroyed       [][3]int   `json:"destroyed,omitempty"`
	Damaged         [][3]int   `json:"damaged,omitempty"`
	Drops           []DropInfo `json:"drops,omitempty"`
	Broken          bool       `json:"broken,omitempty"`
}

type DropInfo struct {
	Pos      [3]int `json:"pos"`
	Outcome  string `json:"outcome"` // "AUTO_COLLECTED","FORCED_DROP","NORMAL_DROP","NO_DROP"
	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type Event map[string]interface{}

// EVENTS (server -> client) carries everything queued for the agent since the
// previous batch.
type EventsMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Events          []Event `json:"events"`
}
