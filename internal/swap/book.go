// Package swap stores pending swap proposals keyed by (proposer, counterparty).
package swap

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"ticketsale/internal/domain"
)

// Book holds at most one pending offer per ordered identity pair. It is not
// safe for concurrent use; the sale controller serialises access.
type Book struct {
	offers map[domain.SwapKey]domain.SwapOffer
	seq    uint64
	now    func() time.Time
}

func NewBook() *Book {
	return &Book{
		offers: make(map[domain.SwapKey]domain.SwapOffer),
		now:    time.Now,
	}
}

// Put records (or replaces) the offer under key and returns the stored record.
func (b *Book) Put(key domain.SwapKey, proposerTicket, targetTicket domain.TicketID) domain.SwapOffer {
	b.seq++
	offer := domain.SwapOffer{
		Key:            key,
		ProposerTicket: proposerTicket,
		TargetTicket:   targetTicket,
		Sequence:       b.seq,
		OfferedAt:      b.now().UTC(),
	}
	b.offers[key] = offer
	return offer
}

func (b *Book) Get(key domain.SwapKey) (domain.SwapOffer, bool) {
	o, ok := b.offers[key]
	return o, ok
}

// Delete removes the entry and reports whether one existed.
func (b *Book) Delete(key domain.SwapKey) bool {
	if _, ok := b.offers[key]; !ok {
		return false
	}
	delete(b.offers, key)
	return true
}

// AddressedTo returns offers whose counterparty is c and whose target is
// target, oldest first.
func (b *Book) AddressedTo(c uuid.UUID, target domain.TicketID) []domain.SwapOffer {
	var out []domain.SwapOffer
	for key, o := range b.offers {
		if key.Counterparty == c && o.TargetTicket == target {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (b *Book) Len() int {
	return len(b.offers)
}
