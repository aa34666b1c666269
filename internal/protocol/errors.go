package protocol

// ACK codes. An empty code means success.
const (
	// The message itself could not be decoded or routed.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Unknown agent or tool.
	ErrBadRequest = "E_BAD_REQUEST"
	// The target cell is protected.
	ErrNoPermission = "E_NO_PERMISSION"
	// No inventory room for a pickup.
	ErrNoResource = "E_NO_RESOURCE"
	// Nothing minable or pickable at the target.
	ErrInvalidTarget = "E_INVALID_TARGET"
	// The world rejected the strike's batch.
	ErrConflict = "E_CONFLICT"
	// The tool cannot pick that item up.
	ErrBlocked  = "E_BLOCKED"
	ErrInternal = "E_INTERNAL"
)

func IsKnownCode(code string) bool {
	switch code {
	case "", ErrProtoBadRequest, ErrBadRequest, ErrNoPermission, ErrNoResource,
		ErrInvalidTarget, ErrConflict, ErrBlocked, ErrInternal:
		return true
	}
	return false
}
