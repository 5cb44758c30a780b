// Package resale keeps the resale listing index and computes fee splits.
package resale

import (
	"iter"
	"sort"

	"github.com/shopspring/decimal"

	"ticketsale/internal/domain"
	"ticketsale/internal/registry"
	"ticketsale/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Market mirrors the registry's forSale flags into an index so listings can
// be enumerated without scanning the full supply. Every flag change goes
// through List or Clear so the two never drift.
type Market struct {
	registry   *registry.Registry
	listed     map[domain.TicketID]struct{}
	feePercent decimal.Decimal
}

func NewMarket(reg *registry.Registry, feePercent int) (*Market, error) {
	if feePercent < 0 || feePercent > 100 {
		return nil, errors.Wrapf(errors.ErrInvalidConfiguration, "resale fee percent %d", feePercent)
	}
	return &Market{
		registry:   reg,
		listed:     make(map[domain.TicketID]struct{}),
		feePercent: decimal.NewFromInt(int64(feePercent)),
	}, nil
}

// List flags id for sale at price. The caller has checked ownership.
func (m *Market) List(id domain.TicketID, price decimal.Decimal) error {
	if !price.IsPositive() {
		return errors.Wrapf(errors.ErrInvalidPrice, "price %s", price)
	}
	m.registry.SetPrice(id, price)
	m.registry.SetForSale(id, true)
	m.listed[id] = struct{}{}
	return nil
}

// Clear removes any listing of id.
func (m *Market) Clear(id domain.TicketID) {
	m.registry.SetForSale(id, false)
	delete(m.listed, id)
}

func (m *Market) IsListed(id domain.TicketID) bool {
	_, ok := m.listed[id]
	return ok
}

// Listings returns listed ticket ids in ascending order.
func (m *Market) Listings() []domain.TicketID {
	ids := make([]domain.TicketID, 0, len(m.listed))
	for id := range m.listed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Split returns fee = floor(price * feePercent / 100) and the seller's remainder.
func (m *Market) Split(price decimal.Decimal) (fee, sellerAmount decimal.Decimal) {
	fee = price.Mul(m.feePercent).Div(hundred).Floor()
	return fee, price.Sub(fee)
}

// Seq adapts a snapshot of ids into a finite, restartable sequence.
func Seq(ids []domain.TicketID) iter.Seq[domain.TicketID] {
	return func(yield func(domain.TicketID) bool) {
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}
