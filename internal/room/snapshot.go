package room

import (
	"time"

	"whist-lite/whist"
)

// Snapshot is a point-in-time copy of the room, including the game session
// when one is running. Hands inside Game are unredacted; transports shape
// them per viewer.
type Snapshot struct {
	Code         string
	HostID       string
	Phase        PhaseTag
	Settings     Settings
	Members      []Member
	LastActivity time.Time
	Game         *whist.Snapshot
}

// ActionPayload rides GameStateUpdated events.
type ActionPayload struct {
	Action      string
	Seat        int
	Bid         *int
	Card        *string
	TrickWinner *int
	Snapshot    Snapshot
}

// EndPayload rides GameEnded events.
type EndPayload struct {
	Results  []whist.SeatResult
	Snapshot Snapshot
}

// PausePayload rides GamePaused events.
type PausePayload struct {
	Reason string
}
