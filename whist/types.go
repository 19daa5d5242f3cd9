package whist

import "whist-lite/card"

const InvalidSeat = -1

// Phase is the session state machine tag.
type Phase byte

const (
	PhaseTypeSetup    Phase = 0
	PhaseTypeBidding  Phase = 1
	PhaseTypePlaying  Phase = 2
	PhaseTypeRoundEnd Phase = 3
	PhaseTypeGameEnd  Phase = 4
)

var PhaseTypeDictionary = map[Phase]string{
	PhaseTypeSetup:    "setup",
	PhaseTypeBidding:  "bidding",
	PhaseTypePlaying:  "playing",
	PhaseTypeRoundEnd: "roundEnd",
	PhaseTypeGameEnd:  "gameEnd",
}

// DeckSize is the full deck dealt from each round.
const DeckSize = 52

var FullDeck = []card.Card{
	card.CardClubA, card.CardClub2, card.CardClub3, card.CardClub4, card.CardClub5, card.CardClub6,
	card.CardClub7, card.CardClub8, card.CardClub9, card.CardClubT, card.CardClubJ, card.CardClubQ, card.CardClubK,
	card.CardDiamondA, card.CardDiamond2, card.CardDiamond3, card.CardDiamond4, card.CardDiamond5, card.CardDiamond6,
	card.CardDiamond7, card.CardDiamond8, card.CardDiamond9, card.CardDiamondT, card.CardDiamondJ, card.CardDiamondQ, card.CardDiamondK,
	card.CardHeartA, card.CardHeart2, card.CardHeart3, card.CardHeart4, card.CardHeart5, card.CardHeart6,
	card.CardHeart7, card.CardHeart8, card.CardHeart9, card.CardHeartT, card.CardHeartJ, card.CardHeartQ, card.CardHeartK,
	card.CardSpadeA, card.CardSpade2, card.CardSpade3, card.CardSpade4, card.CardSpade5, card.CardSpade6,
	card.CardSpade7, card.CardSpade8, card.CardSpade9, card.CardSpadeT, card.CardSpadeJ, card.CardSpadeQ, card.CardSpadeK,
}

// RoundSequence builds the round-size ladder: strictly decreasing from
// maxSize to 1, then strictly increasing back to maxSize. Length 2*maxSize-1.
func RoundSequence(maxSize int) []int {
	if maxSize < 1 {
		return nil
	}
	seq := make([]int, 0, 2*maxSize-1)
	for size := maxSize; size >= 1; size-- {
		seq = append(seq, size)
	}
	for size := 2; size <= maxSize; size++ {
		seq = append(seq, size)
	}
	return seq
}

// TrickPlay is one (seat, card) entry of the current trick, in play order.
type TrickPlay struct {
	Seat int
	Card card.Card
}

// BidResult reports what a successful PlaceBid transitioned.
type BidResult struct {
	Seat          int
	Bid           int
	BiddingClosed bool
	FirstPlaySeat int
}

// PlayResult reports what a successful PlayCard transitioned.
type PlayResult struct {
	Seat          int
	Card          card.Card
	TrickComplete bool
	TrickWinner   int
	RoundComplete bool
	GameComplete  bool
}

// RoundResult is one seat's line in its round history.
type RoundResult struct {
	RoundSize int
	Bid       int
	Tricks    int
	Score     int
}

// SeatResult is one seat's final standing at game end.
type SeatResult struct {
	Seat            int
	PlayerID        string
	DisplayName     string
	CumulativeScore int
	Winner          bool
}
