// Package ownership maintains the holder -> ticket reverse index.
package ownership

import (
	"github.com/google/uuid"

	"ticketsale/internal/domain"
	"ticketsale/pkg/errors"
)

// Index maps each holder to the single ticket they own. Not safe for
// concurrent use on its own.
type Index struct {
	byHolder map[uuid.UUID]domain.TicketID
}

func NewIndex() *Index {
	return &Index{byHolder: make(map[uuid.UUID]domain.TicketID)}
}

// TicketOf returns the holder's ticket or domain.NoTicket.
func (i *Index) TicketOf(holder uuid.UUID) domain.TicketID {
	return i.byHolder[holder]
}

// Bind records holder as owning id. Rebinding the same ticket is a no-op;
// binding a holder that already owns a different ticket is rejected.
func (i *Index) Bind(holder uuid.UUID, id domain.TicketID) error {
	if holder == uuid.Nil || id == domain.NoTicket {
		return errors.ErrInvalidTicketID
	}
	if cur, ok := i.byHolder[holder]; ok && cur != id {
		return errors.Wrapf(errors.ErrAlreadyOwnsTicket, "holder %s owns ticket %d", holder, cur)
	}
	i.byHolder[holder] = id
	return nil
}

func (i *Index) Unbind(holder uuid.UUID) {
	delete(i.byHolder, holder)
}

// Len is the number of holders currently owning a ticket.
func (i *Index) Len() int {
	return len(i.byHolder)
}

// Holders returns a copy of the index.
func (i *Index) Holders() map[uuid.UUID]domain.TicketID {
	out := make(map[uuid.UUID]domain.TicketID, len(i.byHolder))
	for k, v := range i.byHolder {
		out[k] = v
	}
	return out
}
