package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whist-lite/card"
	"whist-lite/internal/event"
	"whist-lite/whist"
)

// PhaseTag is the coarse room lifecycle tag.
type PhaseTag string

const (
	PhaseWaiting  PhaseTag = "waiting"
	PhasePlaying  PhaseTag = "playing"
	PhaseFinished PhaseTag = "finished"
)

type Member struct {
	PlayerID    string
	DisplayName string
	IsHost      bool
	IsReady     bool
	Connected   bool
	JoinedAt    time.Time
}

// GameEndHook is a post-game callback (stats recording and the like).
type GameEndHook func(code string, results []whist.SeatResult)

// Room is the per-room actor. All mutations flow through a single command
// loop, so a room never processes two client messages concurrently;
// different rooms share no mutable state and run fully in parallel.
type Room struct {
	Code string

	mu       sync.RWMutex
	settings Settings
	members  []*Member // ordered by joinedAt
	hostID   string
	phaseTag PhaseTag
	game     *whist.Game

	lastActivity time.Time
	emptySince   time.Time
	closed       bool
	stopOnce     sync.Once

	commands chan command
	done     chan struct{}

	publish      func(event.Event)
	gameEndHooks []GameEndHook
	log          zerolog.Logger
}

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdLeave
	cmdSetReady
	cmdUpdateConn
	cmdStartGame
	cmdPlaceBid
	cmdPlayCard
	cmdAdvanceRound
	cmdClose
)

type command struct {
	kind        cmdKind
	playerID    string
	displayName string
	ready       bool
	connected   bool
	bid         int
	card        card.Card
	resp        chan error
}

func New(code string, settings Settings, publish func(event.Event), log zerolog.Logger) *Room {
	r := &Room{
		Code:         code,
		settings:     settings,
		phaseTag:     PhaseWaiting,
		lastActivity: time.Now(),
		emptySince:   time.Now(),
		commands:     make(chan command, 64),
		done:         make(chan struct{}),
		publish:      publish,
		log:          log.With().Str("room", code).Logger(),
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case cmd := <-r.commands:
			err := r.handleCommand(cmd)
			if cmd.resp != nil {
				cmd.resp <- err
			}
		case <-r.done:
			r.log.Debug().Msg("room actor stopped")
			return
		}
	}
}

func (r *Room) handleCommand(cmd command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed && cmd.kind != cmdClose {
		return ErrRoomClosed
	}
	r.lastActivity = time.Now()

	switch cmd.kind {
	case cmdJoin:
		return r.handleJoin(cmd.playerID, cmd.displayName)
	case cmdLeave:
		return r.handleLeave(cmd.playerID)
	case cmdSetReady:
		return r.handleSetReady(cmd.playerID, cmd.ready)
	case cmdUpdateConn:
		return r.handleUpdateConnection(cmd.playerID, cmd.connected)
	case cmdStartGame:
		return r.handleStartGame(cmd.playerID)
	case cmdPlaceBid:
		return r.handlePlaceBid(cmd.playerID, cmd.bid)
	case cmdPlayCard:
		return r.handlePlayCard(cmd.playerID, cmd.card)
	case cmdAdvanceRound:
		return r.handleAdvanceRound(cmd.playerID)
	case cmdClose:
		r.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown command kind: %d", cmd.kind)
	}
}

// submit sends a command into the actor and waits for its outcome.
func (r *Room) submit(cmd command) error {
	cmd.resp = make(chan error, 1)

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrRoomClosed
	}
	select {
	case err := <-cmd.resp:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// --- membership ---

func (r *Room) handleJoin(playerID, displayName string) error {
	if r.memberLocked(playerID) != nil {
		return ErrAlreadyMember
	}
	if r.phaseTag == PhasePlaying {
		return ErrGameInProgress
	}
	if len(r.members) >= r.settings.Capacity {
		return ErrRoomFull
	}

	m := &Member{
		PlayerID:    playerID,
		DisplayName: displayName,
		Connected:   true,
		JoinedAt:    time.Now(),
	}
	if len(r.members) == 0 {
		m.IsHost = true
		r.hostID = playerID
	}
	r.members = append(r.members, m)
	r.emptySince = time.Time{}

	r.log.Info().Str("player", playerID).Int("members", len(r.members)).Msg("player joined")
	r.publish(event.Event{
		Type:     event.PlayerJoined,
		RoomCode: r.Code,
		PlayerID: playerID,
		Payload:  r.snapshotLocked(),
	})
	return nil
}

func (r *Room) handleLeave(playerID string) error {
	idx := -1
	for i, m := range r.members {
		if m.PlayerID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotMember
	}
	wasHost := r.members[idx].IsHost
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	r.log.Info().Str("player", playerID).Int("members", len(r.members)).Msg("player left")
	r.publish(event.Event{
		Type:     event.PlayerLeft,
		RoomCode: r.Code,
		PlayerID: playerID,
		Payload:  r.snapshotLocked(),
	})

	// A seat in a running game stays in turn order; the engine only sees
	// the player go dark, which may pause the session.
	if r.game != nil && !r.game.Ended() {
		r.applyConnectionToGameLocked(playerID, false)
	}

	if len(r.members) == 0 {
		r.emptySince = time.Now()
		return nil
	}
	if wasHost {
		// Deterministic promotion: members stay join-ordered.
		newHost := r.members[0]
		newHost.IsHost = true
		r.hostID = newHost.PlayerID
		r.log.Info().Str("player", newHost.PlayerID).Msg("host migrated")
		r.publish(event.Event{
			Type:     event.HostChanged,
			RoomCode: r.Code,
			PlayerID: newHost.PlayerID,
			Payload:  r.snapshotLocked(),
		})
	}
	return nil
}

func (r *Room) handleSetReady(playerID string, ready bool) error {
	m := r.memberLocked(playerID)
	if m == nil {
		return ErrNotMember
	}
	m.IsReady = ready

	if !r.allReadyLocked() {
		return nil
	}
	r.publish(event.Event{
		Type:     event.AllReady,
		RoomCode: r.Code,
		Payload:  r.snapshotLocked(),
	})
	if r.settings.AutoStart && r.phaseTag == PhaseWaiting {
		return r.startGameLocked()
	}
	return nil
}

func (r *Room) handleUpdateConnection(playerID string, connected bool) error {
	m := r.memberLocked(playerID)
	if m == nil {
		return ErrNotMember
	}
	m.Connected = connected
	if connected {
		r.emptySince = time.Time{}
	}
	if r.game != nil && !r.game.Ended() {
		r.applyConnectionToGameLocked(playerID, connected)
	}
	return nil
}

func (r *Room) applyConnectionToGameLocked(playerID string, connected bool) {
	paused, resumed, err := r.game.SetSeatConnected(playerID, connected)
	if err != nil {
		return // the player never held a seat in this session
	}
	if paused {
		r.log.Warn().Msg("game paused: insufficient connected players")
		r.publish(event.Event{
			Type:     event.GamePaused,
			RoomCode: r.Code,
			Payload:  PausePayload{Reason: "insufficientPlayers"},
		})
	}
	if resumed {
		r.log.Info().Msg("game resumed")
	}
}

// --- game lifecycle ---

func (r *Room) handleStartGame(requesterID string) error {
	if requesterID != r.hostID {
		return ErrNotHost
	}
	return r.startGameLocked()
}

func (r *Room) startGameLocked() error {
	if r.phaseTag == PhasePlaying {
		return ErrAlreadyStarted
	}
	if len(r.members) < MinCapacity {
		return ErrNotEnoughPlayers
	}
	if !r.allReadyLocked() {
		return ErrNotAllReady
	}

	seats := make([]whist.SeatConfig, 0, len(r.members))
	for _, m := range r.members {
		seats = append(seats, whist.SeatConfig{PlayerID: m.PlayerID, DisplayName: m.DisplayName})
	}
	game, err := whist.NewGame(whist.Config{
		RoundMax: r.settings.RoundMax,
		Seed:     r.settings.GameSeed,
	}, seats)
	if err != nil {
		return err
	}
	if err := game.Start(); err != nil {
		return err
	}
	// Seats start with the membership's current connection states.
	for _, m := range r.members {
		if !m.Connected {
			_, _, _ = game.SetSeatConnected(m.PlayerID, false)
		}
	}

	r.game = game
	r.phaseTag = PhasePlaying
	r.log.Info().Int("seats", len(seats)).Msg("game started")
	r.publish(event.Event{
		Type:     event.GameStarted,
		RoomCode: r.Code,
		Payload:  r.snapshotLocked(),
	})
	return nil
}

func (r *Room) handlePlaceBid(playerID string, n int) error {
	if r.game == nil {
		return ErrNoActiveGame
	}
	res, err := r.game.PlaceBid(playerID, n)
	if err != nil {
		return err
	}
	r.publish(event.Event{
		Type:     event.GameStateUpdated,
		RoomCode: r.Code,
		PlayerID: playerID,
		Payload:  ActionPayload{Action: "placeBid", Seat: res.Seat, Bid: &res.Bid, Snapshot: r.snapshotLocked()},
	})
	return nil
}

func (r *Room) handlePlayCard(playerID string, c card.Card) error {
	if r.game == nil {
		return ErrNoActiveGame
	}
	res, err := r.game.PlayCard(playerID, c)
	if err != nil {
		if _, fatal := err.(whist.InvalidStateError); fatal {
			// Programming defect inside the engine: abort this session
			// only, the process and other rooms keep running.
			r.log.Error().Err(err).Msg("engine invariant violated, aborting session")
			r.abortGameLocked()
		}
		return err
	}

	cardCode := res.Card.Code()
	payload := ActionPayload{Action: "playCard", Seat: res.Seat, Card: &cardCode, Snapshot: r.snapshotLocked()}
	if res.TrickComplete {
		payload.TrickWinner = &res.TrickWinner
	}
	r.publish(event.Event{
		Type:     event.GameStateUpdated,
		RoomCode: r.Code,
		PlayerID: playerID,
		Payload:  payload,
	})

	if res.GameComplete {
		r.finishGameLocked()
	}
	return nil
}

func (r *Room) handleAdvanceRound(playerID string) error {
	if r.game == nil {
		return ErrNoActiveGame
	}
	if r.memberLocked(playerID) == nil {
		return ErrNotMember
	}
	if err := r.game.AdvanceRound(); err != nil {
		if _, fatal := err.(whist.InvalidStateError); fatal {
			r.log.Error().Err(err).Msg("engine invariant violated, aborting session")
			r.abortGameLocked()
		}
		return err
	}
	r.publish(event.Event{
		Type:     event.RoundAdvanced,
		RoomCode: r.Code,
		Payload:  r.snapshotLocked(),
	})
	return nil
}

func (r *Room) finishGameLocked() {
	results := r.game.Results()
	r.phaseTag = PhaseFinished
	r.log.Info().Msg("game ended")
	r.publish(event.Event{
		Type:     event.GameEnded,
		RoomCode: r.Code,
		Payload:  EndPayload{Results: results, Snapshot: r.snapshotLocked()},
	})
	for _, hook := range r.gameEndHooks {
		hook(r.Code, results)
	}

	// Detach the session; members can ready up for another game.
	r.game = nil
	for _, m := range r.members {
		m.IsReady = false
	}
	r.phaseTag = PhaseWaiting
}

func (r *Room) abortGameLocked() {
	r.game = nil
	r.phaseTag = PhaseWaiting
	for _, m := range r.members {
		m.IsReady = false
	}
}

// --- public API (actor submits) ---

func (r *Room) Join(playerID, displayName string) error {
	return r.submit(command{kind: cmdJoin, playerID: playerID, displayName: displayName})
}

func (r *Room) Leave(playerID string) error {
	return r.submit(command{kind: cmdLeave, playerID: playerID})
}

func (r *Room) SetReady(playerID string, ready bool) error {
	return r.submit(command{kind: cmdSetReady, playerID: playerID, ready: ready})
}

func (r *Room) UpdateConnection(playerID string, connected bool) error {
	return r.submit(command{kind: cmdUpdateConn, playerID: playerID, connected: connected})
}

func (r *Room) StartGame(requesterID string) error {
	return r.submit(command{kind: cmdStartGame, playerID: requesterID})
}

func (r *Room) PlaceBid(playerID string, n int) error {
	return r.submit(command{kind: cmdPlaceBid, playerID: playerID, bid: n})
}

func (r *Room) PlayCard(playerID string, c card.Card) error {
	return r.submit(command{kind: cmdPlayCard, playerID: playerID, card: c})
}

func (r *Room) AdvanceRound(playerID string) error {
	return r.submit(command{kind: cmdAdvanceRound, playerID: playerID})
}

// AddGameEndHook registers a post-game callback.
func (r *Room) AddGameEndHook(hook GameEndHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.gameEndHooks = append(r.gameEndHooks, hook)
	r.mu.Unlock()
}

// Close shuts the room actor down.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Room) stopLocked() {
	r.closed = true
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// --- lifecycle probes (registry sweep) ---

// IsEmptyFor reports whether the room has been memberless at least grace.
func (r *Room) IsEmptyFor(grace time.Duration, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return true
	}
	if len(r.members) > 0 || r.emptySince.IsZero() {
		return false
	}
	return now.Sub(r.emptySince) >= grace
}

// IsInactiveFor reports whether nothing touched the room for at least ttl.
func (r *Room) IsInactiveFor(ttl time.Duration, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return true
	}
	return now.Sub(r.lastActivity) >= ttl
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// --- snapshots ---

func (r *Room) memberLocked(playerID string) *Member {
	for _, m := range r.members {
		if m.PlayerID == playerID {
			return m
		}
	}
	return nil
}

func (r *Room) allReadyLocked() bool {
	if len(r.members) < MinCapacity {
		return false
	}
	for _, m := range r.members {
		if !m.IsReady {
			return false
		}
	}
	return true
}

func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	s := Snapshot{
		Code:         r.Code,
		HostID:       r.hostID,
		Phase:        r.phaseTag,
		Settings:     r.settings,
		LastActivity: r.lastActivity,
	}
	for _, m := range r.members {
		s.Members = append(s.Members, *m)
	}
	if r.game != nil {
		gs := r.game.Snapshot()
		s.Game = &gs
	}
	return s
}
