package codec

import (
	"encoding/json"
	"time"

	"whist-lite/internal/room"
	"whist-lite/internal/service"
)

// Client message types.
const (
	ClientAuth       = "auth"
	ClientCreateRoom = "createRoom"
	ClientJoinRoom   = "joinRoom"
	ClientLeaveRoom  = "leaveRoom"
	ClientSetReady   = "setReady"
	ClientStartGame  = "startGame"
	ClientAction     = "action"
	ClientGetState   = "getState"
	ClientPing       = "ping"
)

// Server message types.
const (
	ServerAuthOK    = "authOk"
	ServerRoomState = "roomState"
	ServerEvent     = "event"
	ServerError     = "error"
	ServerPong      = "pong"
)

// ClientEnvelope is the single inbound wire frame. Type selects which
// fields are meaningful.
type ClientEnvelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`

	// auth
	PlayerID    string `json:"playerId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Token       string `json:"token,omitempty"` // account session token, optional

	// createRoom
	Settings *room.Settings `json:"settings,omitempty"`

	// joinRoom and room-scoped requests
	RoomCode string `json:"roomCode,omitempty"`

	// setReady
	Ready bool `json:"ready,omitempty"`

	// action
	Action *service.Action `json:"action,omitempty"`
}

// ServerEnvelope is the single outbound wire frame.
type ServerEnvelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	ServerTs  int64  `json:"serverTs"`

	PlayerID string    `json:"playerId,omitempty"` // authOk
	Room     *RoomView `json:"room,omitempty"`

	Event *EventBody `json:"event,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// EventBody wraps a domain event for one subscriber.
type EventBody struct {
	Name     string       `json:"name"`
	RoomCode string       `json:"roomCode,omitempty"`
	PlayerID string       `json:"playerId,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Results  []ResultView `json:"results,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals an envelope, stamping the server time.
func Encode(env ServerEnvelope) ([]byte, error) {
	if env.ServerTs == 0 {
		env.ServerTs = time.Now().UnixMilli()
	}
	return json.Marshal(env)
}

// Decode unmarshals a client frame.
func Decode(data []byte) (ClientEnvelope, error) {
	var env ClientEnvelope
	err := json.Unmarshal(data, &env)
	return env, err
}
