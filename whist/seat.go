package whist

import "whist-lite/card"

// SeatConfig pins one player into the fixed seat order at game start.
type SeatConfig struct {
	PlayerID    string
	DisplayName string
}

type Seat struct {
	PlayerID    string
	DisplayName string
	Index       int

	connected bool

	hand            card.CardList
	bid             int // -1 until placed
	tricksWon       int
	cumulativeScore int
	roundHistory    []RoundResult
}

func (s *Seat) Connected() bool      { return s.connected }
func (s *Seat) Bid() int             { return s.bid }
func (s *Seat) HasBid() bool         { return s.bid >= 0 }
func (s *Seat) TricksWon() int       { return s.tricksWon }
func (s *Seat) CumulativeScore() int { return s.cumulativeScore }
func (s *Seat) Hand() []card.Card    { return s.hand }

func (s *Seat) resetForRound(roundSize int) {
	s.hand = make(card.CardList, 0, roundSize)
	s.bid = -1
	s.tricksWon = 0
}

func (s *Seat) addHandCard(c card.Card) {
	s.hand = append(s.hand, c)
}

func (s *Seat) applyRoundScore(roundSize int) int {
	score := 0
	if s.bid == s.tricksWon {
		score = 10 + s.tricksWon
	}
	s.cumulativeScore += score
	s.roundHistory = append(s.roundHistory, RoundResult{
		RoundSize: roundSize,
		Bid:       s.bid,
		Tricks:    s.tricksWon,
		Score:     score,
	})
	return score
}
