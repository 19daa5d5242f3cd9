package service

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"whist-lite/card"
	"whist-lite/internal/event"
	"whist-lite/internal/player"
	"whist-lite/internal/room"
	"whist-lite/whist"
)

var ErrUnknownAction = errors.New("unknown action type")

// Service is the boundary between transports and the domain. Transports
// hand it identities and intents; it owns the registry wiring, including
// the stats hook every new room gets.
type Service struct {
	rooms   *room.Registry
	players *player.Registry
	log     zerolog.Logger
}

func New(rooms *room.Registry, players *player.Registry, log zerolog.Logger) *Service {
	s := &Service{
		rooms:   rooms,
		players: players,
		log:     log.With().Str("component", "service").Logger(),
	}
	// A player hard-removed after its disconnect grace must not linger as
	// a room member that can never ready up.
	players.AddRemovalHook(s.evictExpiredPlayer)
	return s
}

func (s *Service) evictExpiredPlayer(p player.Player) {
	if p.CurrentRoomCode == "" {
		return
	}
	r, ok := s.rooms.Get(p.CurrentRoomCode)
	if !ok {
		return
	}
	if err := r.Leave(p.ID); err != nil {
		s.log.Debug().Err(err).Str("player", p.ID).Msg("eviction not applied to room")
	}
}

// RoomEvents is the stream transports fan out to room subscribers.
func (s *Service) RoomEvents() *event.Stream { return s.rooms.Events() }

// PlayerEvents carries identity lifecycle events.
func (s *Service) PlayerEvents() *event.Stream { return s.players.Events() }

// Authenticate resolves or mints a player identity. Reclaiming an identity
// that still holds a room brings its seat back online.
func (s *Service) Authenticate(existingID, displayName string) (player.Player, bool) {
	p, reclaimed := s.players.Authenticate(existingID, displayName)
	if reclaimed && p.CurrentRoomCode != "" {
		if r, ok := s.rooms.Get(p.CurrentRoomCode); ok {
			if err := r.UpdateConnection(p.ID, true); err != nil {
				s.log.Debug().Err(err).Str("player", p.ID).Msg("reclaim not applied to room")
			}
		}
	}
	return p, reclaimed
}

// CreateRoom opens a room with the player as host and first member.
func (s *Service) CreateRoom(playerID string, settings room.Settings) (room.Snapshot, error) {
	p, ok := s.players.Get(playerID)
	if !ok {
		return room.Snapshot{}, player.ErrPlayerNotFound
	}
	r, err := s.rooms.CreateRoom(p.ID, p.DisplayName, settings)
	if err != nil {
		return room.Snapshot{}, err
	}
	r.AddGameEndHook(s.recordResults)
	_ = s.players.SetRoom(p.ID, r.Code)
	return r.Snapshot(), nil
}

// JoinRoom adds the player to an existing room by code.
func (s *Service) JoinRoom(playerID, code string) (room.Snapshot, error) {
	p, ok := s.players.Get(playerID)
	if !ok {
		return room.Snapshot{}, player.ErrPlayerNotFound
	}
	r, ok := s.rooms.Get(code)
	if !ok {
		return room.Snapshot{}, room.ErrRoomNotFound
	}
	if err := r.Join(p.ID, p.DisplayName); err != nil {
		return room.Snapshot{}, err
	}
	_ = s.players.SetRoom(p.ID, r.Code)
	return r.Snapshot(), nil
}

// LeaveRoom removes the player and clears the identity's room pointer.
func (s *Service) LeaveRoom(playerID, code string) error {
	r, ok := s.rooms.Get(code)
	if !ok {
		return room.ErrRoomNotFound
	}
	if err := r.Leave(playerID); err != nil {
		return err
	}
	_ = s.players.SetRoom(playerID, "")
	return nil
}

func (s *Service) SetReady(playerID, code string, ready bool) error {
	r, ok := s.rooms.Get(code)
	if !ok {
		return room.ErrRoomNotFound
	}
	return r.SetReady(playerID, ready)
}

func (s *Service) StartGame(playerID, code string) error {
	r, ok := s.rooms.Get(code)
	if !ok {
		return room.ErrRoomNotFound
	}
	return r.StartGame(playerID)
}

// Action names accepted by SubmitAction.
const (
	ActionPlaceBid     = "placeBid"
	ActionPlayCard     = "playCard"
	ActionAdvanceRound = "advanceRound"
)

// Action is a game intent as it arrives off the wire.
type Action struct {
	Type string `json:"type"`
	Bid  int    `json:"bid,omitempty"`
	Card string `json:"card,omitempty"` // e.g. "AS", "TD", "7H"
}

// SubmitAction routes a game action into the player's room actor.
func (s *Service) SubmitAction(playerID, code string, a Action) error {
	r, ok := s.rooms.Get(code)
	if !ok {
		return room.ErrRoomNotFound
	}
	switch a.Type {
	case ActionPlaceBid:
		return r.PlaceBid(playerID, a.Bid)
	case ActionPlayCard:
		c, err := card.Parse(a.Card)
		if err != nil {
			return fmt.Errorf("%w: %v", whist.ErrInvalidMove, err)
		}
		return r.PlayCard(playerID, c)
	case ActionAdvanceRound:
		return r.AdvanceRound(playerID)
	default:
		return ErrUnknownAction
	}
}

// RoomSnapshot reads the room's current state.
func (s *Service) RoomSnapshot(code string) (room.Snapshot, error) {
	r, ok := s.rooms.Get(code)
	if !ok {
		return room.Snapshot{}, room.ErrRoomNotFound
	}
	return r.Snapshot(), nil
}

// Player reads a player's current record.
func (s *Service) Player(playerID string) (player.Player, bool) {
	return s.players.Get(playerID)
}

// Disconnect marks the identity offline and lets its room react, which
// may pause a running game.
func (s *Service) Disconnect(playerID string) {
	p, err := s.players.Disconnect(playerID)
	if err != nil {
		return
	}
	if p.CurrentRoomCode == "" {
		return
	}
	if r, ok := s.rooms.Get(p.CurrentRoomCode); ok {
		if err := r.UpdateConnection(playerID, false); err != nil {
			s.log.Debug().Err(err).Str("player", playerID).Msg("disconnect not applied to room")
		}
	}
}

// Reconnect rebinds the identity and brings its seat back online.
func (s *Service) Reconnect(playerID string) (player.Player, error) {
	p, err := s.players.Reconnect(playerID)
	if err != nil {
		return player.Player{}, err
	}
	if p.CurrentRoomCode != "" {
		if r, ok := s.rooms.Get(p.CurrentRoomCode); ok {
			if err := r.UpdateConnection(playerID, true); err != nil {
				s.log.Debug().Err(err).Str("player", playerID).Msg("reconnect not applied to room")
			}
		}
	}
	return p, nil
}

// recordResults folds finished-game results into player stats.
func (s *Service) recordResults(code string, results []whist.SeatResult) {
	for _, res := range results {
		s.players.RecordGameResult(res.PlayerID, res.Winner, res.CumulativeScore)
	}
	s.log.Info().Str("room", code).Int("seats", len(results)).Msg("game results recorded")
}
