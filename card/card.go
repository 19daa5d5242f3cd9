package card

import (
	"fmt"
	"strings"
)

// Card encoding:
// - high 4 bits: suit (0:Club, 1:Diamond, 2:Heart, 3:Spade)
// - low 4 bits: rank (1:A, 2..9, 10:T, 11:J, 12:Q, 13:K)
type Card byte

func (c Card) String() string {
	if c == CardInvalid {
		return "Invalid"
	}
	return fmt.Sprintf("%s%s", c.Suit(), rankString(c.Rank()))
}

// Rank returns the face value 1-13 (A=1, K=13).
func (c Card) Rank() byte {
	if c == CardInvalid {
		return 0
	}
	return byte(c & 0x0F)
}

func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

// TrickValue returns the comparison strength under the house ordering
// A,7,K,Q,J,T,9,8,6,5,4,3,2 (strongest first). Higher beats lower.
func (c Card) TrickValue() int {
	switch r := c.Rank(); r {
	case 1:
		return 13
	case 7:
		return 12
	case 13:
		return 11
	case 12:
		return 10
	case 11:
		return 9
	case 10:
		return 8
	case 9:
		return 7
	case 8:
		return 6
	default:
		// 2..6 keep natural order below the 8
		return int(r) - 1
	}
}

// Code returns the compact wire form, e.g. "AS", "TD", "7H".
func (c Card) Code() string {
	if c == CardInvalid {
		return ""
	}
	return rankString(c.Rank()) + c.Suit().Code()
}

func rankString(r byte) string {
	switch r {
	case 1:
		return "A"
	case 10:
		return "T"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		return fmt.Sprintf("%d", r)
	}
}

// Parse converts a wire string such as "AS", "Td" or "10h" into a Card.
func Parse(cardStr string) (Card, error) {
	if len(cardStr) < 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %q", cardStr)
	}

	var suitBase Card
	switch cardStr[len(cardStr)-1] {
	case 'c', 'C':
		suitBase = Card(Club) << 4
	case 'd', 'D':
		suitBase = Card(Diamond) << 4
	case 'h', 'H':
		suitBase = Card(Heart) << 4
	case 's', 'S':
		suitBase = Card(Spade) << 4
	default:
		return CardInvalid, fmt.Errorf("invalid suit: %c", cardStr[len(cardStr)-1])
	}

	var rankVal Card
	switch strings.ToUpper(cardStr[:len(cardStr)-1]) {
	case "A":
		rankVal = 0x01
	case "2":
		rankVal = 0x02
	case "3":
		rankVal = 0x03
	case "4":
		rankVal = 0x04
	case "5":
		rankVal = 0x05
	case "6":
		rankVal = 0x06
	case "7":
		rankVal = 0x07
	case "8":
		rankVal = 0x08
	case "9":
		rankVal = 0x09
	case "T", "10":
		rankVal = 0x0A
	case "J":
		rankVal = 0x0B
	case "Q":
		rankVal = 0x0C
	case "K":
		rankVal = 0x0D
	default:
		return CardInvalid, fmt.Errorf("invalid rank: %s", cardStr[:len(cardStr)-1])
	}

	return suitBase | rankVal, nil
}
