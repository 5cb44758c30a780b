package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a committed ledger change announced after the transaction completes.
type Event interface {
	EventName() string
}

// EventHeader carries the commit sequence. Sequences increase strictly in
// commit order, so consumers can restore that order if delivery reorders.
type EventHeader struct {
	ID          string    `json:"id"`
	Sequence    uint64    `json:"sequence"`
	PublishedAt time.Time `json:"published_at"`
}

func NewEventHeader(seq uint64) EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		Sequence:    seq,
		PublishedAt: time.Now().UTC(),
	}
}

type TicketPurchased struct {
	Header   EventHeader     `json:"header"`
	TicketID TicketID        `json:"ticket_id"`
	Buyer    uuid.UUID       `json:"buyer"`
	Amount   decimal.Decimal `json:"amount"`
}

func (TicketPurchased) EventName() string { return "TicketPurchased" }

type SwapOffered struct {
	Header         EventHeader `json:"header"`
	Proposer       uuid.UUID   `json:"proposer"`
	Counterparty   uuid.UUID   `json:"counterparty"`
	ProposerTicket TicketID    `json:"proposer_ticket"`
	TargetTicket   TicketID    `json:"target_ticket"`
}

func (SwapOffered) EventName() string { return "SwapOffered" }

type SwapWithdrawn struct {
	Header       EventHeader `json:"header"`
	Proposer     uuid.UUID   `json:"proposer"`
	Counterparty uuid.UUID   `json:"counterparty"`
}

func (SwapWithdrawn) EventName() string { return "SwapWithdrawn" }

type SwapSettled struct {
	Header     EventHeader    `json:"header"`
	Settlement SwapSettlement `json:"settlement"`
}

func (SwapSettled) EventName() string { return "SwapSettled" }

type ResaleListed struct {
	Header   EventHeader     `json:"header"`
	TicketID TicketID        `json:"ticket_id"`
	Seller   uuid.UUID       `json:"seller"`
	Price    decimal.Decimal `json:"price"`
}

func (ResaleListed) EventName() string { return "ResaleListed" }

type ResaleCancelled struct {
	Header   EventHeader `json:"header"`
	TicketID TicketID    `json:"ticket_id"`
	Seller   uuid.UUID   `json:"seller"`
}

func (ResaleCancelled) EventName() string { return "ResaleCancelled" }

type ResaleSettled struct {
	Header     EventHeader      `json:"header"`
	Settlement ResaleSettlement `json:"settlement"`
}

func (ResaleSettled) EventName() string { return "ResaleSettled" }

type TicketReturned struct {
	Header  EventHeader   `json:"header"`
	Receipt ReturnReceipt `json:"receipt"`
}

func (TicketReturned) EventName() string { return "TicketReturned" }
