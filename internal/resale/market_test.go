package resale

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsale/internal/domain"
	"ticketsale/internal/registry"
	"ticketsale/pkg/errors"
)

func newMarket(t *testing.T) (*Market, *registry.Registry) {
	t.Helper()
	reg, err := registry.New(10, decimal.NewFromInt(100))
	require.NoError(t, err)
	m, err := NewMarket(reg, 10)
	require.NoError(t, err)
	return m, reg
}

func TestMarket_ListSetsRegistryState(t *testing.T) {
	m, reg := newMarket(t)

	require.NoError(t, m.List(6, decimal.NewFromInt(120)))

	tk, _ := reg.Get(6)
	assert.True(t, tk.ForSale)
	assert.True(t, tk.Price.Equal(decimal.NewFromInt(120)))
	assert.True(t, m.IsListed(6))
}

func TestMarket_ListRejectsNonPositivePrice(t *testing.T) {
	m, reg := newMarket(t)

	assert.ErrorIs(t, m.List(1, decimal.Zero), errors.ErrInvalidPrice)
	assert.ErrorIs(t, m.List(1, decimal.NewFromInt(-10)), errors.ErrInvalidPrice)

	tk, _ := reg.Get(1)
	assert.False(t, tk.ForSale)
	assert.False(t, m.IsListed(1))
}

func TestMarket_ListingsAscending(t *testing.T) {
	m, _ := newMarket(t)
	for _, id := range []domain.TicketID{7, 2, 9} {
		require.NoError(t, m.List(id, decimal.NewFromInt(50)))
	}
	m.Clear(2)

	assert.Equal(t, []domain.TicketID{7, 9}, m.Listings())
}

func TestMarket_Split(t *testing.T) {
	m, _ := newMarket(t)

	tests := []struct {
		price, fee, seller string
	}{
		{"120", "12", "108"},
		{"100", "10", "90"},
		{"9", "0", "9"},
		{"125", "12", "113"},
		{"1", "0", "1"},
	}
	for _, tt := range tests {
		price := decimal.RequireFromString(tt.price)
		fee, seller := m.Split(price)
		assert.True(t, fee.Equal(decimal.RequireFromString(tt.fee)), "fee for %s: %s", tt.price, fee)
		assert.True(t, seller.Equal(decimal.RequireFromString(tt.seller)), "seller for %s: %s", tt.price, seller)
		assert.True(t, fee.Add(seller).Equal(price))
	}
}

func TestNewMarket_RejectsBadPercent(t *testing.T) {
	reg, _ := registry.New(1, decimal.NewFromInt(1))
	_, err := NewMarket(reg, 101)
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
}

func TestSeq_Restartable(t *testing.T) {
	seq := Seq([]domain.TicketID{1, 3})
	assert.Equal(t, []domain.TicketID{1, 3}, slices.Collect(seq))
	assert.Equal(t, []domain.TicketID{1, 3}, slices.Collect(seq))

	for id := range seq {
		assert.Equal(t, domain.TicketID(1), id)
		break
	}
}
