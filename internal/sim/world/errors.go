package world

import (
	"errors"

	"voxelmine.ai/internal/protocol"
	"voxelmine.ai/internal/sim/mining"
	"voxelmine.ai/internal/sim/terrain"
)

var (
	ErrUnknownAgent  = errors.New("world: unknown agent")
	ErrUnknownTool   = errors.New("world: unknown tool")
	ErrCannotPickUp  = errors.New("world: tool cannot pick up item")
	ErrInventoryFull = errors.New("world: inventory full")
)

// Code maps an error from Join, Mine or PickUp to a wire error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, terrain.ErrProtected):
		return protocol.ErrNoPermission
	case errors.Is(err, ErrInventoryFull):
		return protocol.ErrNoResource
	case errors.Is(err, ErrCannotPickUp):
		return protocol.ErrBlocked
	case errors.Is(err, mining.ErrTargetUnresolved),
		errors.Is(err, terrain.ErrNoRubble),
		errors.Is(err, terrain.ErrNotPickable):
		return protocol.ErrInvalidTarget
	case errors.Is(err, mining.ErrCommitFailed):
		return protocol.ErrConflict
	case errors.Is(err, ErrUnknownAgent), errors.Is(err, ErrUnknownTool):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}
