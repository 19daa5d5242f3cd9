package room

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whist-lite/internal/event"
)

func newTestRegistry() *Registry {
	return NewRegistry(time.Minute, time.Hour, zerolog.Nop())
}

var codePattern = regexp.MustCompile(`^[A-Z]{4}$`)

func TestCreateRoomCodeFormat(t *testing.T) {
	reg := newTestRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		r, err := reg.CreateRoom("host", "Ann", Settings{})
		require.NoError(t, err)
		assert.Regexp(t, codePattern, r.Code)
		assert.False(t, seen[r.Code], "codes must be unique among live rooms")
		seen[r.Code] = true
	}
	assert.Equal(t, 50, reg.Count())
}

func TestCreateRoomSeatsHost(t *testing.T) {
	reg := newTestRegistry()
	events, cancel := reg.Events().Subscribe()
	defer cancel()

	r, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)

	snap := r.Snapshot()
	require.Len(t, snap.Members, 1)
	assert.Equal(t, "host", snap.HostID)
	assert.True(t, snap.Members[0].IsHost)

	// Defaults applied by normalization.
	assert.Equal(t, 4, snap.Settings.Capacity)
	assert.Equal(t, 7, snap.Settings.RoundMax)
	assert.Equal(t, "en", snap.Settings.Language)

	var sawCreated bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			if ev.Type == event.RoomCreated {
				sawCreated = true
				assert.Equal(t, r.Code, ev.RoomCode)
			}
		case <-time.After(time.Second):
			t.Fatal("expected roomCreated on the shared stream")
		}
	}
	assert.True(t, sawCreated)
}

func TestCreateRoomRejectsBadSettings(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.CreateRoom("host", "Ann", Settings{Capacity: 1})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, err = reg.CreateRoom("host", "Ann", Settings{RoundMax: 9})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestGetNormalizesCode(t *testing.T) {
	reg := newTestRegistry()
	r, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)

	got, ok := reg.Get("  " + r.Code + " ")
	require.True(t, ok)
	assert.Same(t, r, got)

	lower, ok := reg.Get(strings.ToLower(r.Code))
	require.True(t, ok)
	assert.Same(t, r, lower)

	_, ok = reg.Get("XXXX")
	assert.False(t, ok)
}

func TestRemoveClosesRoom(t *testing.T) {
	reg := newTestRegistry()
	r, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)

	reg.Remove(r.Code)
	_, ok := reg.Get(r.Code)
	assert.False(t, ok)
	assert.ErrorIs(t, r.Join("p2", "Ben"), ErrRoomClosed)
}

func TestSweepRemovesEmptyRooms(t *testing.T) {
	reg := newTestRegistry()
	r, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)
	require.NoError(t, r.Leave("host"))

	// Inside the grace window nothing happens.
	assert.Equal(t, 0, reg.Sweep(time.Now()))
	assert.Equal(t, 1, reg.Count())

	removed := reg.Sweep(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, reg.Count())
}

func TestSweepKeepsOccupiedRooms(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)

	assert.Equal(t, 0, reg.Sweep(time.Now().Add(30*time.Minute)))
	assert.Equal(t, 1, reg.Count())
}

func TestSweepRemovesInactiveRooms(t *testing.T) {
	reg := newTestRegistry()
	r, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)

	// Occupied but idle past the inactivity timeout.
	removed := reg.Sweep(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 1, removed)
	_, ok := reg.Get(r.Code)
	assert.False(t, ok)
}

func TestRejoinDuringGraceKeepsRoom(t *testing.T) {
	reg := newTestRegistry()
	r, err := reg.CreateRoom("host", "Ann", Settings{})
	require.NoError(t, err)
	require.NoError(t, r.Leave("host"))
	require.NoError(t, r.Join("p2", "Ben"))

	assert.Equal(t, 0, reg.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, reg.Count())
}
