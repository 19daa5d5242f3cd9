package codec

import (
	"errors"

	"whist-lite/internal/player"
	"whist-lite/internal/room"
	"whist-lite/internal/service"
	"whist-lite/whist"
)

// ErrorCode maps a domain error onto a stable wire code. Unknown errors
// collapse to "internal" so internals never leak verbatim.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "roomNotFound"
	case errors.Is(err, room.ErrRoomClosed):
		return "roomClosed"
	case errors.Is(err, room.ErrRoomFull):
		return "roomFull"
	case errors.Is(err, room.ErrGameInProgress):
		return "gameInProgress"
	case errors.Is(err, room.ErrAlreadyMember):
		return "alreadyMember"
	case errors.Is(err, room.ErrNotMember):
		return "notMember"
	case errors.Is(err, room.ErrNotHost):
		return "notHost"
	case errors.Is(err, room.ErrNotEnoughPlayers):
		return "notEnoughPlayers"
	case errors.Is(err, room.ErrNotAllReady):
		return "notAllReady"
	case errors.Is(err, room.ErrAlreadyStarted):
		return "alreadyStarted"
	case errors.Is(err, room.ErrNoActiveGame):
		return "noActiveGame"
	case errors.Is(err, room.ErrCodeSpaceExhausted):
		return "codeSpaceExhausted"
	case errors.Is(err, room.ErrInvalidSettings):
		return "invalidSettings"
	case errors.Is(err, whist.ErrGameEnded):
		return "gameEnded"
	case errors.Is(err, whist.ErrGamePaused):
		return "gamePaused"
	case errors.Is(err, whist.ErrWrongPhase):
		return "wrongPhase"
	case errors.Is(err, whist.ErrOutOfTurn):
		return "outOfTurn"
	case errors.Is(err, whist.ErrInvalidBid):
		return "invalidBid"
	case errors.Is(err, whist.ErrInvalidMove):
		return "invalidMove"
	case errors.Is(err, whist.ErrUnknownSeat):
		return "unknownSeat"
	case errors.Is(err, player.ErrPlayerNotFound):
		return "playerNotFound"
	case errors.Is(err, service.ErrUnknownAction):
		return "unknownAction"
	default:
		var ise whist.InvalidStateError
		if errors.As(err, &ise) {
			return "sessionAborted"
		}
		return "internal"
	}
}
