package card

import "math/rand"

type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

func (ds CardList) Count() int {
	return len(ds)
}

// Shuffle permutes the list in place with the caller's RNG so that a
// seeded source reproduces the identical deal.
func (ds CardList) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(ds), func(i, j int) {
		ds[i], ds[j] = ds[j], ds[i]
	})
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

func (ds *CardList) PopCard() Card {
	totalCount := ds.Count()
	if totalCount == 0 {
		return CardInvalid
	}
	c := (*ds)[0]
	*ds = (*ds)[1:]
	return c
}

func (ds *CardList) PopCards(size int) ([]Card, bool) {
	if size > ds.Count() {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards, true
}

// Contains reports whether c is present in the list.
func (ds CardList) Contains(c Card) bool {
	for _, cc := range ds {
		if cc == c {
			return true
		}
	}
	return false
}

// Remove deletes the first occurrence of c, reporting whether it was found.
func (ds *CardList) Remove(c Card) bool {
	for i, cc := range *ds {
		if cc == c {
			*ds = append((*ds)[:i], (*ds)[i+1:]...)
			return true
		}
	}
	return false
}

// HasSuit reports whether any card of the given suit remains.
func (ds CardList) HasSuit(s Suit) bool {
	for _, cc := range ds {
		if cc.Suit() == s {
			return true
		}
	}
	return false
}
