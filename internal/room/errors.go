package room

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomClosed         = errors.New("room closed")
	ErrRoomFull           = errors.New("room is full")
	ErrGameInProgress     = errors.New("game already in progress")
	ErrAlreadyMember      = errors.New("player already in room")
	ErrNotMember          = errors.New("player not in room")
	ErrNotHost            = errors.New("only the host may do that")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrNotAllReady        = errors.New("not all players are ready")
	ErrAlreadyStarted     = errors.New("game already started")
	ErrNoActiveGame       = errors.New("no active game in room")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted, retry later")
	ErrInvalidSettings    = errors.New("invalid room settings")
)
