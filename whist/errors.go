package whist

import "errors"

var (
	ErrGameEnded   = errors.New("game already ended")
	ErrGamePaused  = errors.New("game paused: insufficient connected players")
	ErrWrongPhase  = errors.New("action not valid in current phase")
	ErrOutOfTurn   = errors.New("action out of turn")
	ErrInvalidBid  = errors.New("bid outside allowed range")
	ErrInvalidMove = errors.New("card not playable")
	ErrUnknownSeat = errors.New("player not seated in this game")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
