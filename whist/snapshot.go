package whist

import "whist-lite/card"

type SeatSnapshot struct {
	PlayerID    string
	DisplayName string
	Index       int
	Connected   bool

	Hand            []card.Card
	Bid             int // -1 until placed
	TricksWon       int
	CumulativeScore int
	RoundHistory    []RoundResult
}

type Snapshot struct {
	Phase  Phase
	Paused bool
	Ended  bool

	RoundIndex  int
	RoundSize   int
	TotalRounds int

	TrumpSuit card.Suit
	LeadSuit  card.Suit

	DealerSeat int
	TurnSeat   int
	WinnerSeat int

	CurrentTrick []TrickPlay
	StockCount   int
	Seats        []SeatSnapshot
}

// Snapshot returns a deep copy of the session state. Hands are included for
// every seat; per-viewer redaction is the caller's concern.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		Phase:        g.phase,
		Paused:       g.paused,
		Ended:        g.ended,
		RoundIndex:   g.roundIndex,
		RoundSize:    g.roundSequence[g.roundIndex],
		TotalRounds:  len(g.roundSequence),
		TrumpSuit:    g.trumpSuit,
		LeadSuit:     g.leadSuit,
		DealerSeat:   g.dealerSeat,
		TurnSeat:     g.turnSeat,
		WinnerSeat:   g.winnerSeat,
		CurrentTrick: append([]TrickPlay{}, g.currentTrick...),
		StockCount:   g.stock.Count(),
	}
	for _, seat := range g.seats {
		s.Seats = append(s.Seats, SeatSnapshot{
			PlayerID:        seat.PlayerID,
			DisplayName:     seat.DisplayName,
			Index:           seat.Index,
			Connected:       seat.connected,
			Hand:            append([]card.Card{}, seat.hand...),
			Bid:             seat.bid,
			TricksWon:       seat.tricksWon,
			CumulativeScore: seat.cumulativeScore,
			RoundHistory:    append([]RoundResult{}, seat.roundHistory...),
		})
	}
	return s
}
