package player

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(grace time.Duration) *Registry {
	return NewRegistry(grace, zerolog.Nop())
}

func TestAuthenticateMintsIdentity(t *testing.T) {
	r := newTestRegistry(time.Minute)

	p, reclaimed := r.Authenticate("", "Ann")
	require.False(t, reclaimed)
	require.NotEmpty(t, p.ID)
	assert.Equal(t, "Ann", p.DisplayName)
	assert.True(t, p.Connected)

	other, _ := r.Authenticate("", "Ben")
	assert.NotEqual(t, p.ID, other.ID)
}

func TestAuthenticateReclaimsExisting(t *testing.T) {
	r := newTestRegistry(time.Minute)
	p, _ := r.Authenticate("", "Ann")
	_, err := r.Disconnect(p.ID)
	require.NoError(t, err)

	got, reclaimed := r.Authenticate(p.ID, "")
	require.True(t, reclaimed)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Ann", got.DisplayName, "empty name must not clobber the stored one")
	assert.True(t, got.Connected)
}

func TestAuthenticateUnknownIDMintsFresh(t *testing.T) {
	r := newTestRegistry(time.Minute)
	p, reclaimed := r.Authenticate("no-such-id", "Cleo")
	assert.False(t, reclaimed)
	assert.NotEqual(t, "no-such-id", p.ID)
}

func TestDisconnectSchedulesRemoval(t *testing.T) {
	r := newTestRegistry(50 * time.Millisecond)
	p, _ := r.Authenticate("", "Ann")

	got, err := r.Disconnect(p.ID)
	require.NoError(t, err)
	assert.False(t, got.Connected)

	// Before the grace expires nothing is removed.
	removed := r.Sweep(time.Now())
	assert.Empty(t, removed)

	removed = r.Sweep(time.Now().Add(time.Second))
	require.Len(t, removed, 1)
	assert.Equal(t, p.ID, removed[0].ID)

	_, ok := r.Get(p.ID)
	assert.False(t, ok)
}

func TestReconnectWinsSweepRace(t *testing.T) {
	r := newTestRegistry(50 * time.Millisecond)
	p, _ := r.Authenticate("", "Ann")
	_, err := r.Disconnect(p.ID)
	require.NoError(t, err)

	_, err = r.Reconnect(p.ID)
	require.NoError(t, err)

	// The sweep fires after the original deadline but must keep the
	// reconnected player.
	removed := r.Sweep(time.Now().Add(time.Second))
	assert.Empty(t, removed)
	got, ok := r.Get(p.ID)
	require.True(t, ok)
	assert.True(t, got.Connected)
}

func TestRemovalHookFiresOnSweep(t *testing.T) {
	r := newTestRegistry(50 * time.Millisecond)
	var evicted []Player
	r.AddRemovalHook(func(p Player) { evicted = append(evicted, p) })

	p, _ := r.Authenticate("", "Ann")
	require.NoError(t, r.SetRoom(p.ID, "ABCD"))
	_, err := r.Disconnect(p.ID)
	require.NoError(t, err)

	r.Sweep(time.Now())
	assert.Empty(t, evicted, "hook must not fire before the grace expires")

	r.Sweep(time.Now().Add(time.Second))
	require.Len(t, evicted, 1)
	assert.Equal(t, p.ID, evicted[0].ID)
	assert.Equal(t, "ABCD", evicted[0].CurrentRoomCode)
}

func TestDisconnectUnknownPlayer(t *testing.T) {
	r := newTestRegistry(time.Minute)
	_, err := r.Disconnect("ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = r.Reconnect("ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSetRoomAndStats(t *testing.T) {
	r := newTestRegistry(time.Minute)
	p, _ := r.Authenticate("", "Ann")

	require.NoError(t, r.SetRoom(p.ID, "ABCD"))
	got, ok := r.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, "ABCD", got.CurrentRoomCode)

	r.RecordGameResult(p.ID, true, 42)
	r.RecordGameResult(p.ID, false, 10)
	got, _ = r.Get(p.ID)
	assert.Equal(t, 2, got.Stats.GamesPlayed)
	assert.Equal(t, 1, got.Stats.GamesWon)
	assert.Equal(t, 52, got.Stats.TotalScore)

	assert.ErrorIs(t, r.SetRoom("ghost", "ABCD"), ErrPlayerNotFound)
}
