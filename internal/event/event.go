package event

import "time"

// Type tags a domain event for wire dispatch.
type Type string

const (
	RoomCreated        Type = "roomCreated"
	PlayerJoined       Type = "playerJoined"
	PlayerLeft         Type = "playerLeft"
	HostChanged        Type = "hostChanged"
	AllReady           Type = "allReady"
	GameStarted        Type = "gameStarted"
	GameStateUpdated   Type = "gameStateUpdated"
	RoundAdvanced      Type = "roundAdvanced"
	GameEnded          Type = "gameEnded"
	GamePaused         Type = "gamePaused"
	PlayerDisconnected Type = "playerDisconnected"
	PlayerReconnected  Type = "playerReconnected"
)

// Event is one domain occurrence published on a component's outbound
// stream. Payload carries the event-specific body; transports marshal it.
type Event struct {
	Type     Type
	RoomCode string
	PlayerID string
	Payload  any
	At       time.Time
}
