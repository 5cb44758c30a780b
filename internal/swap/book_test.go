package swap

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsale/internal/domain"
)

func TestBook_PutGetDelete(t *testing.T) {
	b := NewBook()
	key := domain.SwapKey{Proposer: uuid.New(), Counterparty: uuid.New()}

	_, ok := b.Get(key)
	assert.False(t, ok)

	stored := b.Put(key, 4, 5)
	got, ok := b.Get(key)
	require.True(t, ok)
	assert.Equal(t, stored, got)
	assert.Equal(t, domain.TicketID(4), got.ProposerTicket)
	assert.Equal(t, domain.TicketID(5), got.TargetTicket)

	assert.True(t, b.Delete(key))
	assert.False(t, b.Delete(key))
	assert.Equal(t, 0, b.Len())
}

func TestBook_PutReplacesPair(t *testing.T) {
	b := NewBook()
	key := domain.SwapKey{Proposer: uuid.New(), Counterparty: uuid.New()}

	first := b.Put(key, 1, 2)
	second := b.Put(key, 1, 3)

	got, _ := b.Get(key)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, domain.TicketID(3), got.TargetTicket)
	assert.Greater(t, second.Sequence, first.Sequence)
}

func TestBook_KeyIsOrdered(t *testing.T) {
	b := NewBook()
	a, c := uuid.New(), uuid.New()
	b.Put(domain.SwapKey{Proposer: a, Counterparty: c}, 1, 2)

	_, ok := b.Get(domain.SwapKey{Proposer: c, Counterparty: a})
	assert.False(t, ok)
}

func TestBook_AddressedToOldestFirst(t *testing.T) {
	b := NewBook()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	c := uuid.New()
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	b.Put(domain.SwapKey{Proposer: p2, Counterparty: c}, 2, 9)
	b.Put(domain.SwapKey{Proposer: p1, Counterparty: c}, 1, 9)
	b.Put(domain.SwapKey{Proposer: p3, Counterparty: c}, 3, 8)
	b.Put(domain.SwapKey{Proposer: p1, Counterparty: uuid.New()}, 1, 9)

	offers := b.AddressedTo(c, 9)
	require.Len(t, offers, 2)
	assert.Equal(t, p2, offers[0].Key.Proposer)
	assert.Equal(t, p1, offers[1].Key.Proposer)
	assert.Equal(t, fixed, offers[0].OfferedAt)
}
