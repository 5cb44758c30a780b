// Package registry is the canonical store of ticket state for a fixed supply.
//
// Registry performs no locking. It is owned by the sale controller, which
// serialises every access behind its transaction boundary.
package registry

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketsale/internal/domain"
	"ticketsale/pkg/errors"
)

type Registry struct {
	tickets   []domain.Ticket
	unitPrice decimal.Decimal
}

// New creates count unowned tickets numbered 1..count, each priced at unitPrice.
func New(count int, unitPrice decimal.Decimal) (*Registry, error) {
	if count <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfiguration, "ticket count %d", count)
	}
	if !unitPrice.IsPositive() {
		return nil, errors.Wrapf(errors.ErrInvalidConfiguration, "unit price %s", unitPrice)
	}

	tickets := make([]domain.Ticket, count)
	for i := range tickets {
		tickets[i] = domain.Ticket{
			ID:    domain.TicketID(i + 1),
			Price: unitPrice,
		}
	}
	return &Registry{tickets: tickets, unitPrice: unitPrice}, nil
}

// Count is the immutable ticket supply.
func (r *Registry) Count() int {
	return len(r.tickets)
}

func (r *Registry) UnitPrice() decimal.Decimal {
	return r.unitPrice
}

// Valid reports whether id lies in [1, Count()].
func (r *Registry) Valid(id domain.TicketID) bool {
	return id >= 1 && int(id) <= len(r.tickets)
}

// Get returns a copy of the ticket.
func (r *Registry) Get(id domain.TicketID) (domain.Ticket, error) {
	if !r.Valid(id) {
		return domain.Ticket{}, errors.Wrapf(errors.ErrInvalidTicketID, "ticket %d", id)
	}
	return r.tickets[id-1], nil
}

// All returns a copy of every ticket in ascending id order.
func (r *Registry) All() []domain.Ticket {
	out := make([]domain.Ticket, len(r.tickets))
	copy(out, r.tickets)
	return out
}

// SetOwner reassigns the owner. Callers must already have validated the
// transition and update the ownership index in the same step.
func (r *Registry) SetOwner(id domain.TicketID, owner uuid.UUID) {
	r.tickets[id-1].Owner = owner
}

// SetPrice sets the ticket price; callers validate positivity.
func (r *Registry) SetPrice(id domain.TicketID, price decimal.Decimal) {
	r.tickets[id-1].Price = price
}

func (r *Registry) SetForSale(id domain.TicketID, forSale bool) {
	r.tickets[id-1].ForSale = forSale
}
