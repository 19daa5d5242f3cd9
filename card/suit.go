package card

type Suit byte

const (
	Club    Suit = iota // ♣️
	Diamond             // ♦️
	Heart               // ♥️
	Spade               // ♠️

	// SuitNone marks a round played without trump.
	SuitNone Suit = 0x0F
)

func (s Suit) String() string {
	switch s {
	case Club:
		return "♣️"
	case Diamond:
		return "♦️"
	case Heart:
		return "♥️"
	case Spade:
		return "♠️"
	}
	return "-"
}

// Code returns the single-letter wire form.
func (s Suit) Code() string {
	switch s {
	case Club:
		return "C"
	case Diamond:
		return "D"
	case Heart:
		return "H"
	case Spade:
		return "S"
	}
	return ""
}

// ParseSuit converts a single-letter wire form back into a Suit.
func ParseSuit(code string) (Suit, bool) {
	switch code {
	case "C", "c":
		return Club, true
	case "D", "d":
		return Diamond, true
	case "H", "h":
		return Heart, true
	case "S", "s":
		return Spade, true
	}
	return SuitNone, false
}
