package whist

import (
	"fmt"

	"whist-lite/card"
)

type Config struct {
	// RoundMax is the configured largest round size (cards per seat).
	// The effective maximum is clamped so a full table still fits the deck.
	RoundMax int

	// RNG seed (0 => time-based)
	Seed int64

	// Test/replay hooks: DeckOverride bypasses the shuffle and deals the
	// given deck in order, ForcedDealerSeat pins the opening dealer.
	DeckOverride     []card.Card
	ForcedDealerSeat *int
}

func (c Config) validate() error {
	if c.RoundMax < 1 || c.RoundMax > 13 {
		return fmt.Errorf("RoundMax must be in [1,13], got %d", c.RoundMax)
	}
	if len(c.DeckOverride) > 0 {
		if len(c.DeckOverride) != DeckSize {
			return fmt.Errorf("DeckOverride must hold %d cards, got %d", DeckSize, len(c.DeckOverride))
		}
		seen := make(map[card.Card]struct{}, DeckSize)
		for _, cc := range c.DeckOverride {
			if _, dup := seen[cc]; dup {
				return fmt.Errorf("DeckOverride contains duplicate card %s", cc)
			}
			seen[cc] = struct{}{}
		}
	}
	return nil
}
