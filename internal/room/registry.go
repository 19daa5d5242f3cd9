package room

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whist-lite/internal/event"
)

const (
	codeLength      = 4
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxCodeAttempts = 512

	DefaultEmptyGrace      = 2 * time.Minute
	DefaultInactiveTimeout = 2 * time.Hour
)

// Registry owns room existence and the code uniqueness index. Code
// allocation runs inside the registry's critical section so concurrent
// creations can never collide on a code.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	rng   *rand.Rand

	emptyGrace      time.Duration
	inactiveTimeout time.Duration

	events *event.Stream
	log    zerolog.Logger
}

func NewRegistry(emptyGrace, inactiveTimeout time.Duration, log zerolog.Logger) *Registry {
	if emptyGrace <= 0 {
		emptyGrace = DefaultEmptyGrace
	}
	if inactiveTimeout <= 0 {
		inactiveTimeout = DefaultInactiveTimeout
	}
	return &Registry{
		rooms:           make(map[string]*Room),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		emptyGrace:      emptyGrace,
		inactiveTimeout: inactiveTimeout,
		events:          event.NewStream(),
		log:             log.With().Str("component", "roomRegistry").Logger(),
	}
}

// Events exposes the outbound event stream shared by the registry and
// every room it owns.
func (reg *Registry) Events() *event.Stream { return reg.events }

// CreateRoom allocates a unique code by rejection sampling against the
// live-code set and seats the host as the first member.
func (reg *Registry) CreateRoom(hostID, hostName string, settings Settings) (*Room, error) {
	if err := settings.normalize(); err != nil {
		return nil, err
	}

	reg.mu.Lock()
	code, ok := reg.allocateCodeLocked()
	if !ok {
		reg.mu.Unlock()
		return nil, ErrCodeSpaceExhausted
	}
	r := New(code, settings, reg.events.Publish, reg.log)
	reg.rooms[code] = r
	reg.mu.Unlock()

	if err := r.Join(hostID, hostName); err != nil {
		// Cannot happen for a fresh room; fail closed anyway.
		reg.Remove(code)
		return nil, err
	}

	reg.log.Info().Str("room", code).Str("host", hostID).Msg("room created")
	reg.events.Publish(event.Event{
		Type:     event.RoomCreated,
		RoomCode: code,
		PlayerID: hostID,
		Payload:  r.Snapshot(),
	})
	return r, nil
}

func (reg *Registry) allocateCodeLocked() (string, bool) {
	buf := make([]byte, codeLength)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		for i := range buf {
			buf[i] = codeAlphabet[reg.rng.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := reg.rooms[code]; !taken {
			return code, true
		}
	}
	return "", false
}

// Get resolves a room by code. Lookup is case-normalized.
func (reg *Registry) Get(code string) (*Room, bool) {
	code = NormalizeCode(code)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// Remove closes and forgets a room.
func (reg *Registry) Remove(code string) {
	code = NormalizeCode(code)
	reg.mu.Lock()
	r, ok := reg.rooms[code]
	if ok {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()
	if ok {
		r.Close()
	}
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Sweep deletes rooms that stayed empty past the grace window or idle
// past the inactivity timeout. Each candidate is re-validated under its
// own exclusion immediately before deletion, so a member who rejoined
// between scheduling and firing keeps the room alive.
func (reg *Registry) Sweep(now time.Time) int {
	reg.mu.Lock()
	candidates := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		candidates = append(candidates, r)
	}
	reg.mu.Unlock()

	removed := 0
	for _, r := range candidates {
		if !r.IsEmptyFor(reg.emptyGrace, now) && !r.IsInactiveFor(reg.inactiveTimeout, now) {
			continue
		}
		// Re-check under the registry lock: the room may already be gone.
		reg.mu.Lock()
		current, ok := reg.rooms[r.Code]
		if !ok || current != r {
			reg.mu.Unlock()
			continue
		}
		// Final validation under the room's own lock before deleting.
		if !r.IsEmptyFor(reg.emptyGrace, now) && !r.IsInactiveFor(reg.inactiveTimeout, now) {
			reg.mu.Unlock()
			continue
		}
		delete(reg.rooms, r.Code)
		reg.mu.Unlock()

		r.Close()
		removed++
		reg.log.Info().Str("room", r.Code).Msg("room swept")
	}
	return removed
}

// RunSweeper drives Sweep on a ticker until stop is closed.
func (reg *Registry) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			reg.Sweep(time.Now())
		case <-stop:
			return
		}
	}
}

// NormalizeCode upper-cases a caller-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
