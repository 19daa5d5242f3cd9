package player

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whist-lite/internal/event"
)

var ErrPlayerNotFound = errors.New("player not found")

const DefaultDisconnectGrace = 60 * time.Second

// Stats is the in-memory per-player tally. Persisting it is out of scope.
type Stats struct {
	GamesPlayed int
	GamesWon    int
	TotalScore  int
}

type Player struct {
	ID              string
	DisplayName     string
	CurrentRoomCode string // "" when not in a room
	Connected       bool
	LastSeen        time.Time
	Stats           Stats
	CreatedAt       time.Time
}

type record struct {
	player   Player
	removeAt time.Time // zero while connected
}

// RemovalHook runs after Sweep hard-removes an expired player.
type RemovalHook func(Player)

// Registry owns player identity and connection binding. Identity survives
// transport churn: a reconnect rebinds the connection under the same
// exclusion as every other mutation; a disconnect schedules hard removal
// after the grace window unless the identity is reclaimed first.
type Registry struct {
	mu      sync.Mutex
	players map[string]*record

	disconnectGrace time.Duration
	removalHooks    []RemovalHook
	events          *event.Stream
	log             zerolog.Logger
}

func NewRegistry(disconnectGrace time.Duration, log zerolog.Logger) *Registry {
	if disconnectGrace <= 0 {
		disconnectGrace = DefaultDisconnectGrace
	}
	return &Registry{
		players:         make(map[string]*record),
		disconnectGrace: disconnectGrace,
		events:          event.NewStream(),
		log:             log.With().Str("component", "playerRegistry").Logger(),
	}
}

// Events exposes the registry's outbound event stream.
func (r *Registry) Events() *event.Stream { return r.events }

// AddRemovalHook registers a callback fired for every player Sweep
// hard-removes, after the registry lock is released.
func (r *Registry) AddRemovalHook(hook RemovalHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.removalHooks = append(r.removalHooks, hook)
	r.mu.Unlock()
}

// Authenticate resolves an existing identity (reconnection path) or mints
// a new one. Ids come from uuid, so concurrent calls cannot collide.
func (r *Registry) Authenticate(existingID, displayName string) (Player, bool) {
	displayName = strings.TrimSpace(displayName)
	now := time.Now()

	r.mu.Lock()
	if rec, ok := r.players[existingID]; ok {
		rec.player.Connected = true
		rec.player.LastSeen = now
		rec.removeAt = time.Time{}
		if displayName != "" {
			rec.player.DisplayName = displayName
		}
		p := rec.player
		r.mu.Unlock()

		r.log.Debug().Str("player", p.ID).Msg("identity reclaimed")
		r.events.Publish(event.Event{
			Type:     event.PlayerReconnected,
			RoomCode: p.CurrentRoomCode,
			PlayerID: p.ID,
		})
		return p, true
	}

	if displayName == "" {
		displayName = "player"
	}
	p := Player{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Connected:   true,
		LastSeen:    now,
		CreatedAt:   now,
	}
	r.players[p.ID] = &record{player: p}
	r.mu.Unlock()

	r.log.Debug().Str("player", p.ID).Str("name", displayName).Msg("identity created")
	return p, false
}

// Disconnect marks the player offline and schedules hard removal after the
// grace window. Removal itself happens in Sweep.
func (r *Registry) Disconnect(playerID string) (Player, error) {
	now := time.Now()

	r.mu.Lock()
	rec, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return Player{}, ErrPlayerNotFound
	}
	rec.player.Connected = false
	rec.player.LastSeen = now
	rec.removeAt = now.Add(r.disconnectGrace)
	p := rec.player
	r.mu.Unlock()

	r.events.Publish(event.Event{
		Type:     event.PlayerDisconnected,
		RoomCode: p.CurrentRoomCode,
		PlayerID: p.ID,
	})
	return p, nil
}

// Reconnect rebinds an existing identity without changing its name.
func (r *Registry) Reconnect(playerID string) (Player, error) {
	r.mu.Lock()
	rec, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return Player{}, ErrPlayerNotFound
	}
	rec.player.Connected = true
	rec.player.LastSeen = time.Now()
	rec.removeAt = time.Time{}
	p := rec.player
	r.mu.Unlock()

	r.events.Publish(event.Event{
		Type:     event.PlayerReconnected,
		RoomCode: p.CurrentRoomCode,
		PlayerID: p.ID,
	})
	return p, nil
}

// SetRoom updates the denormalized current-room pointer ("" clears it).
func (r *Registry) SetRoom(playerID, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	rec.player.CurrentRoomCode = roomCode
	return nil
}

func (r *Registry) Get(playerID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.players[playerID]
	if !ok {
		return Player{}, false
	}
	return rec.player, true
}

// RecordGameResult folds a finished game into the player's tally.
func (r *Registry) RecordGameResult(playerID string, won bool, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.players[playerID]
	if !ok {
		return
	}
	rec.player.Stats.GamesPlayed++
	if won {
		rec.player.Stats.GamesWon++
	}
	rec.player.Stats.TotalScore += score
}

// Sweep hard-removes players whose disconnect grace expired, re-validating
// the connection state under the lock so a reconnect in flight wins the
// race. Returns the removed players.
func (r *Registry) Sweep(now time.Time) []Player {
	r.mu.Lock()
	var removed []Player
	for id, rec := range r.players {
		if rec.player.Connected || rec.removeAt.IsZero() {
			continue
		}
		if now.Before(rec.removeAt) {
			continue
		}
		removed = append(removed, rec.player)
		delete(r.players, id)
	}
	hooks := append([]RemovalHook(nil), r.removalHooks...)
	r.mu.Unlock()

	for _, p := range removed {
		r.log.Info().Str("player", p.ID).Msg("removed after disconnect grace")
		for _, hook := range hooks {
			hook(p)
		}
	}
	return removed
}

// RunSweeper drives Sweep on a ticker until stop is closed.
func (r *Registry) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-stop:
			return
		}
	}
}
