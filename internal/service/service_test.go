package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whist-lite/internal/player"
	"whist-lite/internal/room"
	"whist-lite/whist"
)

func newTestService() *Service {
	players := player.NewRegistry(time.Minute, zerolog.Nop())
	rooms := room.NewRegistry(time.Minute, time.Hour, zerolog.Nop())
	return New(rooms, players, zerolog.Nop())
}

func TestCreateJoinAndPlayFlow(t *testing.T) {
	svc := newTestService()

	host, _ := svc.Authenticate("", "Ann")
	guest, _ := svc.Authenticate("", "Ben")

	snap, err := svc.CreateRoom(host.ID, room.Settings{GameSeed: 7})
	require.NoError(t, err)
	require.Len(t, snap.Members, 1)
	code := snap.Code

	// The host's registry record points at the room.
	p, ok := svc.Player(host.ID)
	require.True(t, ok)
	assert.Equal(t, code, p.CurrentRoomCode)

	snap, err = svc.JoinRoom(guest.ID, code)
	require.NoError(t, err)
	require.Len(t, snap.Members, 2)

	require.NoError(t, svc.SetReady(host.ID, code, true))
	require.NoError(t, svc.SetReady(guest.ID, code, true))
	require.NoError(t, svc.StartGame(host.ID, code))

	snap, err = svc.RoomSnapshot(code)
	require.NoError(t, err)
	require.NotNil(t, snap.Game)
	assert.Equal(t, whist.PhaseTypeBidding, snap.Game.Phase)

	// Both seats bid in turn order; bidding then closes into play.
	turnID := snap.Game.Seats[snap.Game.TurnSeat].PlayerID
	otherID := host.ID
	if turnID == host.ID {
		otherID = guest.ID
	}
	require.NoError(t, svc.SubmitAction(turnID, code, Action{Type: ActionPlaceBid, Bid: 0}))
	require.NoError(t, svc.SubmitAction(otherID, code, Action{Type: ActionPlaceBid, Bid: 0}))

	snap, err = svc.RoomSnapshot(code)
	require.NoError(t, err)
	assert.Equal(t, whist.PhaseTypePlaying, snap.Game.Phase)

	// Play opens left of the dealer.
	expectedTurn := (snap.Game.DealerSeat + 1) % len(snap.Game.Seats)
	assert.Equal(t, expectedTurn, snap.Game.TurnSeat)
}

func TestSubmitActionValidation(t *testing.T) {
	svc := newTestService()
	p, _ := svc.Authenticate("", "Ann")
	snap, err := svc.CreateRoom(p.ID, room.Settings{})
	require.NoError(t, err)

	err = svc.SubmitAction(p.ID, snap.Code, Action{Type: "levitate"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	err = svc.SubmitAction(p.ID, snap.Code, Action{Type: ActionPlayCard, Card: "ZZ"})
	assert.ErrorIs(t, err, whist.ErrInvalidMove)

	err = svc.SubmitAction(p.ID, "QQQQ", Action{Type: ActionPlaceBid})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestJoinUnknownRoomAndPlayer(t *testing.T) {
	svc := newTestService()
	p, _ := svc.Authenticate("", "Ann")

	_, err := svc.JoinRoom(p.ID, "QQQQ")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	_, err = svc.JoinRoom("ghost", "QQQQ")
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)

	_, err = svc.CreateRoom("ghost", room.Settings{})
	assert.ErrorIs(t, err, player.ErrPlayerNotFound)
}

func TestLeaveClearsRoomPointer(t *testing.T) {
	svc := newTestService()
	p, _ := svc.Authenticate("", "Ann")
	snap, err := svc.CreateRoom(p.ID, room.Settings{})
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(p.ID, snap.Code))
	got, _ := svc.Player(p.ID)
	assert.Empty(t, got.CurrentRoomCode)
}

func TestDisconnectPausesAndReconnectResumes(t *testing.T) {
	svc := newTestService()
	host, _ := svc.Authenticate("", "Ann")
	guest, _ := svc.Authenticate("", "Ben")

	snap, err := svc.CreateRoom(host.ID, room.Settings{GameSeed: 7})
	require.NoError(t, err)
	code := snap.Code
	_, err = svc.JoinRoom(guest.ID, code)
	require.NoError(t, err)
	require.NoError(t, svc.SetReady(host.ID, code, true))
	require.NoError(t, svc.SetReady(guest.ID, code, true))
	require.NoError(t, svc.StartGame(host.ID, code))

	svc.Disconnect(guest.ID)
	snap, err = svc.RoomSnapshot(code)
	require.NoError(t, err)
	assert.True(t, snap.Game.Paused)

	// Actions bounce while paused.
	err = svc.SubmitAction(host.ID, code, Action{Type: ActionPlaceBid, Bid: 0})
	assert.ErrorIs(t, err, whist.ErrGamePaused)

	_, err = svc.Reconnect(guest.ID)
	require.NoError(t, err)
	snap, err = svc.RoomSnapshot(code)
	require.NoError(t, err)
	assert.False(t, snap.Game.Paused)
}

func TestAuthenticateReclaimRestoresSeat(t *testing.T) {
	svc := newTestService()
	host, _ := svc.Authenticate("", "Ann")
	guest, _ := svc.Authenticate("", "Ben")

	snap, err := svc.CreateRoom(host.ID, room.Settings{GameSeed: 7})
	require.NoError(t, err)
	code := snap.Code
	_, err = svc.JoinRoom(guest.ID, code)
	require.NoError(t, err)
	require.NoError(t, svc.SetReady(host.ID, code, true))
	require.NoError(t, svc.SetReady(guest.ID, code, true))
	require.NoError(t, svc.StartGame(host.ID, code))

	svc.Disconnect(guest.ID)
	require.True(t, mustSnapshot(t, svc, code).Game.Paused)

	// A fresh websocket authenticating with the stored id reclaims the
	// identity and unpauses the seat.
	got, reclaimed := svc.Authenticate(guest.ID, "")
	require.True(t, reclaimed)
	assert.Equal(t, guest.ID, got.ID)
	assert.False(t, mustSnapshot(t, svc, code).Game.Paused)
}

func mustSnapshot(t *testing.T, svc *Service, code string) room.Snapshot {
	t.Helper()
	snap, err := svc.RoomSnapshot(code)
	require.NoError(t, err)
	return snap
}

func TestExpiredPlayerEvictedFromRoom(t *testing.T) {
	players := player.NewRegistry(50*time.Millisecond, zerolog.Nop())
	rooms := room.NewRegistry(time.Minute, time.Hour, zerolog.Nop())
	svc := New(rooms, players, zerolog.Nop())

	host, _ := svc.Authenticate("", "Ann")
	guest, _ := svc.Authenticate("", "Ben")
	snap, err := svc.CreateRoom(host.ID, room.Settings{})
	require.NoError(t, err)
	code := snap.Code
	_, err = svc.JoinRoom(guest.ID, code)
	require.NoError(t, err)

	// The guest drops and never comes back; the expiry sweep must also
	// clear its room membership, or the room can never go all-ready.
	svc.Disconnect(guest.ID)
	players.Sweep(time.Now().Add(time.Second))

	_, ok := svc.Player(guest.ID)
	assert.False(t, ok)
	snap = mustSnapshot(t, svc, code)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, host.ID, snap.Members[0].PlayerID)
}

func TestGameResultsRecordedInStats(t *testing.T) {
	svc := newTestService()
	host, _ := svc.Authenticate("", "Ann")
	guest, _ := svc.Authenticate("", "Ben")

	snap, err := svc.CreateRoom(host.ID, room.Settings{RoundMax: 7, GameSeed: 11})
	require.NoError(t, err)
	code := snap.Code
	_, err = svc.JoinRoom(guest.ID, code)
	require.NoError(t, err)
	require.NoError(t, svc.SetReady(host.ID, code, true))
	require.NoError(t, svc.SetReady(guest.ID, code, true))
	require.NoError(t, svc.StartGame(host.ID, code))

	// Drive the seeded game to completion.
	for {
		snap = mustSnapshot(t, svc, code)
		if snap.Game == nil {
			break
		}
		g := snap.Game
		switch g.Phase {
		case whist.PhaseTypeBidding:
			id := g.Seats[g.TurnSeat].PlayerID
			require.NoError(t, svc.SubmitAction(id, code, Action{Type: ActionPlaceBid, Bid: 0}))
		case whist.PhaseTypePlaying:
			seat := g.Seats[g.TurnSeat]
			played := false
			for _, c := range seat.Hand {
				err := svc.SubmitAction(seat.PlayerID, code, Action{Type: ActionPlayCard, Card: c.Code()})
				if err == nil {
					played = true
					break
				}
				require.ErrorIs(t, err, whist.ErrInvalidMove)
			}
			require.True(t, played)
		case whist.PhaseTypeRoundEnd:
			require.NoError(t, svc.SubmitAction(host.ID, code, Action{Type: ActionAdvanceRound}))
		default:
			t.Fatalf("unexpected phase %v", g.Phase)
		}
	}

	hp, _ := svc.Player(host.ID)
	gp, _ := svc.Player(guest.ID)
	assert.Equal(t, 1, hp.Stats.GamesPlayed)
	assert.Equal(t, 1, gp.Stats.GamesPlayed)
	assert.Equal(t, 1, hp.Stats.GamesWon+gp.Stats.GamesWon)
}
