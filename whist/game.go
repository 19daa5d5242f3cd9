package whist

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"whist-lite/card"
)

type Game struct {
	cfg Config
	rng *rand.Rand

	mu sync.Mutex

	// seats, fixed order snapshot of room membership at start
	seats        []*Seat
	seatByPlayer map[string]*Seat

	// round sequencing
	roundSequence []int
	roundIndex    int

	// per-round state
	phase        Phase
	trumpSuit    card.Suit
	stock        card.CardList
	currentTrick []TrickPlay
	played       card.CardList // cards consumed by completed tricks this round
	leadSuit     card.Suit
	dealerSeat   int
	turnSeat     int

	paused     bool
	ended      bool
	winnerSeat int
}

func NewGame(cfg Config, seats []SeatConfig) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(seats) < 2 || len(seats) > 8 {
		return nil, fmt.Errorf("seat count must be in [2,8], got %d", len(seats))
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(seed)),
		seats:        make([]*Seat, 0, len(seats)),
		seatByPlayer: make(map[string]*Seat, len(seats)),
		phase:        PhaseTypeSetup,
		trumpSuit:    card.SuitNone,
		leadSuit:     card.SuitNone,
		dealerSeat:   InvalidSeat,
		turnSeat:     InvalidSeat,
		winnerSeat:   InvalidSeat,
	}
	for i, sc := range seats {
		if sc.PlayerID == "" {
			return nil, fmt.Errorf("seat %d has empty player id", i)
		}
		if _, dup := g.seatByPlayer[sc.PlayerID]; dup {
			return nil, fmt.Errorf("player %s seated twice", sc.PlayerID)
		}
		seat := &Seat{
			PlayerID:    sc.PlayerID,
			DisplayName: sc.DisplayName,
			Index:       i,
			connected:   true,
			bid:         -1,
		}
		g.seats = append(g.seats, seat)
		g.seatByPlayer[sc.PlayerID] = seat
	}

	// Clamp the ladder so a full table still fits the deck.
	maxSize := cfg.RoundMax
	if limit := DeckSize / len(seats); maxSize > limit {
		maxSize = limit
	}
	g.roundSequence = RoundSequence(maxSize)
	return g, nil
}

// Start deals the first round and opens bidding.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseTypeSetup {
		return ErrWrongPhase
	}
	var dealer int
	if g.cfg.ForcedDealerSeat != nil {
		dealer = *g.cfg.ForcedDealerSeat
		if dealer < 0 || dealer >= len(g.seats) {
			return fmt.Errorf("forced dealer seat %d out of range", dealer)
		}
	} else {
		dealer = g.rng.Intn(len(g.seats))
	}
	if err := g.dealRoundLocked(g.roundIndex, dealer); err != nil {
		return err
	}
	g.dealerSeat = dealer
	g.phase = PhaseTypeBidding
	g.turnSeat = g.seatAfter(dealer)
	return nil
}

func (g *Game) dealRoundLocked(roundIndex, dealerSeat int) error {
	roundSize := g.roundSequence[roundIndex]

	deck := make(card.CardList, DeckSize)
	if len(g.cfg.DeckOverride) == DeckSize {
		copy(deck, g.cfg.DeckOverride)
	} else {
		copy(deck, FullDeck)
		deck.Shuffle(g.rng)
	}
	g.stock = deck

	for _, seat := range g.seats {
		seat.resetForRound(roundSize)
	}
	// One card at a time, starting left of the dealer.
	for i := 0; i < roundSize; i++ {
		for k := 1; k <= len(g.seats); k++ {
			seat := g.seats[(dealerSeat+k)%len(g.seats)]
			c := g.stock.PopCard()
			if c == card.CardInvalid {
				return ErrInvalidState("deck underflow while dealing")
			}
			seat.addHandCard(c)
		}
	}

	// Trump is the suit of the first undealt card; a deal that consumes
	// the whole deck is played without trump.
	if g.stock.Count() > 0 {
		g.trumpSuit = g.stock[0].Suit()
	} else {
		g.trumpSuit = card.SuitNone
	}

	g.currentTrick = nil
	g.played = nil
	g.leadSuit = card.SuitNone
	return g.checkDeckInvariantLocked()
}

// checkDeckInvariantLocked guards against card duplication/loss: the
// stock, the open trick, the played pile and every hand must partition
// the deck. A failure here is a programming defect: the owning room
// aborts the session.
func (g *Game) checkDeckInvariantLocked() error {
	total := g.stock.Count() + len(g.currentTrick) + len(g.played)
	seen := make(map[card.Card]struct{}, DeckSize)
	for _, c := range g.stock {
		seen[c] = struct{}{}
	}
	for _, tp := range g.currentTrick {
		seen[tp.Card] = struct{}{}
	}
	for _, c := range g.played {
		seen[c] = struct{}{}
	}
	for _, seat := range g.seats {
		total += len(seat.hand)
		for _, c := range seat.hand {
			seen[c] = struct{}{}
		}
	}
	if total != DeckSize || len(seen) != total {
		return ErrInvalidState(fmt.Sprintf("deck invariant broken: %d cards, %d distinct", total, len(seen)))
	}
	return nil
}

// PlaceBid records playerID's bid for the current round. Bidding is
// sequential starting left of the dealer; n must be within [0, roundSize].
func (g *Game) PlaceBid(playerID string, n int) (BidResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return BidResult{}, ErrGameEnded
	}
	if g.paused {
		return BidResult{}, ErrGamePaused
	}
	if g.phase != PhaseTypeBidding {
		return BidResult{}, ErrWrongPhase
	}
	seat, ok := g.seatByPlayer[playerID]
	if !ok {
		return BidResult{}, ErrUnknownSeat
	}
	if seat.Index != g.turnSeat {
		return BidResult{}, ErrOutOfTurn
	}
	roundSize := g.roundSequence[g.roundIndex]
	if n < 0 || n > roundSize {
		return BidResult{}, ErrInvalidBid
	}

	seat.bid = n
	res := BidResult{Seat: seat.Index, Bid: n}

	for _, s := range g.seats {
		if !s.HasBid() {
			g.turnSeat = g.seatAfter(seat.Index)
			return res, nil
		}
	}
	// Everyone has bid: play opens left of the dealer.
	g.phase = PhaseTypePlaying
	g.turnSeat = g.seatAfter(g.dealerSeat)
	res.BiddingClosed = true
	res.FirstPlaySeat = g.turnSeat
	return res, nil
}

// PlayCard applies playerID's card to the current trick, resolving the
// trick, the round and the game as the play completes them.
func (g *Game) PlayCard(playerID string, c card.Card) (PlayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return PlayResult{}, ErrGameEnded
	}
	if g.paused {
		return PlayResult{}, ErrGamePaused
	}
	if g.phase != PhaseTypePlaying {
		return PlayResult{}, ErrWrongPhase
	}
	seat, ok := g.seatByPlayer[playerID]
	if !ok {
		return PlayResult{}, ErrUnknownSeat
	}
	if seat.Index != g.turnSeat {
		return PlayResult{}, ErrOutOfTurn
	}
	if !seat.hand.Contains(c) {
		return PlayResult{}, ErrInvalidMove
	}
	// Follow suit when able.
	if len(g.currentTrick) > 0 && c.Suit() != g.leadSuit && seat.hand.HasSuit(g.leadSuit) {
		return PlayResult{}, ErrInvalidMove
	}

	seat.hand.Remove(c)
	if len(g.currentTrick) == 0 {
		g.leadSuit = c.Suit()
	}
	g.currentTrick = append(g.currentTrick, TrickPlay{Seat: seat.Index, Card: c})
	res := PlayResult{Seat: seat.Index, Card: c, TrickWinner: InvalidSeat}

	if len(g.currentTrick) < len(g.seats) {
		g.turnSeat = g.seatAfter(seat.Index)
		return res, nil
	}

	winner := g.evaluateTrickLocked()
	g.seats[winner].tricksWon++
	for _, tp := range g.currentTrick {
		g.played = append(g.played, tp.Card)
	}
	g.currentTrick = nil
	g.leadSuit = card.SuitNone
	g.turnSeat = winner
	res.TrickComplete = true
	res.TrickWinner = winner

	if err := g.checkDeckInvariantLocked(); err != nil {
		return PlayResult{}, err
	}

	for _, s := range g.seats {
		if len(s.hand) > 0 {
			return res, nil
		}
	}
	res.RoundComplete = true
	res.GameComplete = g.finishRoundLocked()
	return res, nil
}

// evaluateTrickLocked picks the winner: highest trump if any trump was
// played, otherwise highest card of the lead suit.
func (g *Game) evaluateTrickLocked() int {
	winner := g.currentTrick[0]
	for _, tp := range g.currentTrick[1:] {
		if beats(tp.Card, winner.Card, g.trumpSuit, g.leadSuit) {
			winner = tp
		}
	}
	return winner.Seat
}

func beats(challenger, incumbent card.Card, trump, lead card.Suit) bool {
	if trump != card.SuitNone {
		cTrump := challenger.Suit() == trump
		iTrump := incumbent.Suit() == trump
		if cTrump != iTrump {
			return cTrump
		}
		if cTrump && iTrump {
			return challenger.TrickValue() > incumbent.TrickValue()
		}
	}
	if challenger.Suit() != lead {
		return false
	}
	if incumbent.Suit() != lead {
		return true
	}
	return challenger.TrickValue() > incumbent.TrickValue()
}

// finishRoundLocked applies scoring and either parks the session at
// roundEnd or, after the final round, ends the game. Returns true on end.
func (g *Game) finishRoundLocked() bool {
	roundSize := g.roundSequence[g.roundIndex]
	for _, seat := range g.seats {
		seat.applyRoundScore(roundSize)
	}
	g.phase = PhaseTypeRoundEnd
	g.turnSeat = InvalidSeat

	if g.roundIndex < len(g.roundSequence)-1 {
		return false
	}

	// Winner: highest cumulative score, ties to the earliest seat index.
	best := g.seats[0]
	for _, seat := range g.seats[1:] {
		if seat.cumulativeScore > best.cumulativeScore {
			best = seat
		}
	}
	g.winnerSeat = best.Index
	g.phase = PhaseTypeGameEnd
	g.ended = true
	return true
}

// AdvanceRound moves a roundEnd session into the next round's bidding.
func (g *Game) AdvanceRound() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return ErrGameEnded
	}
	if g.paused {
		return ErrGamePaused
	}
	if g.phase != PhaseTypeRoundEnd {
		return ErrWrongPhase
	}

	// Commit the new round index and dealer only once the deal succeeds.
	nextIndex := g.roundIndex + 1
	nextDealer := g.seatAfter(g.dealerSeat)
	if err := g.dealRoundLocked(nextIndex, nextDealer); err != nil {
		return err
	}
	g.roundIndex = nextIndex
	g.dealerSeat = nextDealer
	g.phase = PhaseTypeBidding
	g.turnSeat = g.seatAfter(nextDealer)
	return nil
}

// SetSeatConnected updates a seat's connection flag and maintains the
// pause state: fewer than two connected seats pauses the session in place,
// a reconnect that restores the quorum resumes it unchanged.
func (g *Game) SetSeatConnected(playerID string, connected bool) (paused, resumed bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seat, ok := g.seatByPlayer[playerID]
	if !ok {
		return false, false, ErrUnknownSeat
	}
	seat.connected = connected

	if g.ended {
		return false, false, nil
	}
	connectedCount := 0
	for _, s := range g.seats {
		if s.connected {
			connectedCount++
		}
	}
	switch {
	case connectedCount < 2 && !g.paused:
		g.paused = true
		return true, false, nil
	case connectedCount >= 2 && g.paused:
		g.paused = false
		return false, true, nil
	}
	return false, false, nil
}

func (g *Game) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func (g *Game) Ended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ended
}

// Results returns the final standings. Only meaningful once the game ended.
func (g *Game) Results() []SeatResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	results := make([]SeatResult, 0, len(g.seats))
	for _, seat := range g.seats {
		results = append(results, SeatResult{
			Seat:            seat.Index,
			PlayerID:        seat.PlayerID,
			DisplayName:     seat.DisplayName,
			CumulativeScore: seat.cumulativeScore,
			Winner:          seat.Index == g.winnerSeat,
		})
	}
	return results
}

func (g *Game) seatAfter(index int) int {
	return (index + 1) % len(g.seats)
}
