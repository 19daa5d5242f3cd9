package room

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whist-lite/card"
	"whist-lite/internal/event"
	"whist-lite/whist"
)

// eventSink records published events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *eventSink) publish(e event.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *eventSink) byType(t event.Type) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestRoom(t *testing.T, settings Settings) (*Room, *eventSink) {
	t.Helper()
	sink := &eventSink{}
	r := New("ABCD", settings, sink.publish, zerolog.Nop())
	t.Cleanup(r.Close)
	return r, sink
}

func defaultSettings() Settings {
	return Settings{Capacity: 4, RoundMax: 7, Language: "en", GameSeed: 7}
}

func TestJoinAssignsHostAndOrder(t *testing.T) {
	r, sink := newTestRoom(t, defaultSettings())

	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	assert.ErrorIs(t, r.Join("p1", "Ann"), ErrAlreadyMember)

	snap := r.Snapshot()
	require.Len(t, snap.Members, 2)
	assert.Equal(t, "p1", snap.HostID)
	assert.True(t, snap.Members[0].IsHost)
	assert.False(t, snap.Members[1].IsHost)
	assert.Equal(t, PhaseWaiting, snap.Phase)

	assert.Len(t, sink.byType(event.PlayerJoined), 2)
}

func TestJoinCapacityLimit(t *testing.T) {
	s := defaultSettings()
	s.Capacity = 2
	r, _ := newTestRoom(t, s)

	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	assert.ErrorIs(t, r.Join("p3", "Cleo"), ErrRoomFull)
}

func TestLeaveMigratesHost(t *testing.T) {
	r, sink := newTestRoom(t, defaultSettings())
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	require.NoError(t, r.Join("p3", "Cleo"))

	require.NoError(t, r.Leave("p1"))

	snap := r.Snapshot()
	assert.Equal(t, "p2", snap.HostID, "host moves to the longest-joined member")
	require.Len(t, sink.byType(event.HostChanged), 1)
	assert.Equal(t, "p2", sink.byType(event.HostChanged)[0].PlayerID)

	assert.ErrorIs(t, r.Leave("ghost"), ErrNotMember)
}

func TestStartGameChecks(t *testing.T) {
	r, sink := newTestRoom(t, defaultSettings())
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))

	assert.ErrorIs(t, r.StartGame("p2"), ErrNotHost)
	assert.ErrorIs(t, r.StartGame("p1"), ErrNotAllReady)

	require.NoError(t, r.SetReady("p1", true))
	require.NoError(t, r.SetReady("p2", true))
	assert.Len(t, sink.byType(event.AllReady), 1)

	require.NoError(t, r.StartGame("p1"))
	assert.ErrorIs(t, r.StartGame("p1"), ErrAlreadyStarted)
	assert.Len(t, sink.byType(event.GameStarted), 1)

	snap := r.Snapshot()
	assert.Equal(t, PhasePlaying, snap.Phase)
	require.NotNil(t, snap.Game)
	assert.Equal(t, whist.PhaseTypeBidding, snap.Game.Phase)

	// Joining a live game is rejected.
	assert.ErrorIs(t, r.Join("p3", "Cleo"), ErrGameInProgress)
}

func TestAutoStartOnAllReady(t *testing.T) {
	s := defaultSettings()
	s.AutoStart = true
	r, sink := newTestRoom(t, s)
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))

	require.NoError(t, r.SetReady("p1", true))
	require.NoError(t, r.SetReady("p2", true))

	assert.Equal(t, PhasePlaying, r.Snapshot().Phase)
	assert.Len(t, sink.byType(event.GameStarted), 1)
}

func TestGameActionsFlowThroughRoom(t *testing.T) {
	r, sink := newTestRoom(t, defaultSettings())
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	require.NoError(t, r.SetReady("p1", true))
	require.NoError(t, r.SetReady("p2", true))

	assert.ErrorIs(t, r.PlaceBid("p1", 0), ErrNoActiveGame)
	require.NoError(t, r.StartGame("p1"))

	snap := r.Snapshot()
	require.NotNil(t, snap.Game)
	turn := snap.Game.TurnSeat
	turnPlayer := snap.Game.Seats[turn].PlayerID
	otherPlayer := snap.Game.Seats[(turn+1)%2].PlayerID

	assert.ErrorIs(t, r.PlaceBid(otherPlayer, 0), whist.ErrOutOfTurn)
	require.NoError(t, r.PlaceBid(turnPlayer, 0))
	require.NoError(t, r.PlaceBid(otherPlayer, 0))

	updates := sink.byType(event.GameStateUpdated)
	require.Len(t, updates, 2)
	payload, ok := updates[0].Payload.(ActionPayload)
	require.True(t, ok)
	assert.Equal(t, "placeBid", payload.Action)
	require.NotNil(t, payload.Bid)
	assert.Equal(t, 0, *payload.Bid)

	assert.Equal(t, whist.PhaseTypePlaying, r.Snapshot().Game.Phase)
}

func TestDisconnectPausesGame(t *testing.T) {
	r, sink := newTestRoom(t, defaultSettings())
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	require.NoError(t, r.SetReady("p1", true))
	require.NoError(t, r.SetReady("p2", true))
	require.NoError(t, r.StartGame("p1"))

	require.NoError(t, r.UpdateConnection("p2", false))
	require.True(t, r.Snapshot().Game.Paused)

	paused := sink.byType(event.GamePaused)
	require.Len(t, paused, 1)
	assert.Equal(t, PausePayload{Reason: "insufficientPlayers"}, paused[0].Payload)

	require.NoError(t, r.UpdateConnection("p2", true))
	assert.False(t, r.Snapshot().Game.Paused)
}

func TestLeaveDuringGameMarksSeatOffline(t *testing.T) {
	r, _ := newTestRoom(t, defaultSettings())
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	require.NoError(t, r.SetReady("p1", true))
	require.NoError(t, r.SetReady("p2", true))
	require.NoError(t, r.StartGame("p1"))

	require.NoError(t, r.Leave("p2"))

	snap := r.Snapshot()
	require.NotNil(t, snap.Game, "the session survives a leave")
	assert.True(t, snap.Game.Paused, "a two-seat game pauses when one leaves")
	require.Len(t, snap.Members, 1)
}

func TestFullGameEmitsResults(t *testing.T) {
	s := defaultSettings()
	s.RoundMax = 7
	r, sink := newTestRoom(t, s)
	require.NoError(t, r.Join("p1", "Ann"))
	require.NoError(t, r.Join("p2", "Ben"))
	require.NoError(t, r.SetReady("p1", true))
	require.NoError(t, r.SetReady("p2", true))

	var hookResults []whist.SeatResult
	r.AddGameEndHook(func(code string, results []whist.SeatResult) {
		hookResults = results
	})

	require.NoError(t, r.StartGame("p1"))

	// Drive the seeded game to completion: bid zero, play the first legal
	// card, advance every round.
	for r.Snapshot().Game != nil {
		snap := r.Snapshot().Game
		switch snap.Phase {
		case whist.PhaseTypeBidding:
			turn := snap.Seats[snap.TurnSeat]
			require.NoError(t, r.PlaceBid(turn.PlayerID, 0))
		case whist.PhaseTypePlaying:
			turn := snap.Seats[snap.TurnSeat]
			played := false
			for _, c := range turn.Hand {
				err := r.PlayCard(turn.PlayerID, c)
				if err == nil {
					played = true
					break
				}
				require.ErrorIs(t, err, whist.ErrInvalidMove)
			}
			require.True(t, played, "a legal card must always exist")
		case whist.PhaseTypeRoundEnd:
			require.NoError(t, r.AdvanceRound("p1"))
		default:
			t.Fatalf("unexpected phase %v", snap.Phase)
		}
	}

	ended := sink.byType(event.GameEnded)
	require.Len(t, ended, 1)
	payload, ok := ended[0].Payload.(EndPayload)
	require.True(t, ok)
	require.Len(t, payload.Results, 2)
	require.Len(t, hookResults, 2)

	winners := 0
	for _, res := range payload.Results {
		if res.Winner {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	// Room returns to the lobby with ready flags cleared.
	snap := r.Snapshot()
	assert.Equal(t, PhaseWaiting, snap.Phase)
	for _, m := range snap.Members {
		assert.False(t, m.IsReady)
	}
}

func TestClosedRoomRejectsCommands(t *testing.T) {
	sink := &eventSink{}
	r := New("ABCD", defaultSettings(), sink.publish, zerolog.Nop())
	r.Close()

	assert.ErrorIs(t, r.Join("p1", "Ann"), ErrRoomClosed)
	assert.ErrorIs(t, r.PlayCard("p1", card.CardClubA), ErrRoomClosed)
}
