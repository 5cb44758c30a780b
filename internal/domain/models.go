// Package domain holds the ticket sale data model shared by every internal package.
package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketID numbers tickets from 1 to the fixed supply.
type TicketID int

// NoTicket is the sentinel for "owns nothing" / "no offer".
const NoTicket TicketID = 0

func (id TicketID) String() string {
	return strconv.Itoa(int(id))
}

// Ticket is a snapshot of one ticket's state.
type Ticket struct {
	ID      TicketID        `json:"id"`
	Owner   uuid.UUID       `json:"owner"`
	Price   decimal.Decimal `json:"price"`
	ForSale bool            `json:"for_sale"`
}

// Owned reports whether the ticket has a non-empty owner.
func (t Ticket) Owned() bool {
	return t.Owner != uuid.Nil
}

// SwapKey identifies a pending proposal by its ordered identity pair.
type SwapKey struct {
	Proposer     uuid.UUID `json:"proposer"`
	Counterparty uuid.UUID `json:"counterparty"`
}

// SwapOffer records the proposer's ticket offered in exchange for the target.
type SwapOffer struct {
	Key            SwapKey   `json:"key"`
	ProposerTicket TicketID  `json:"proposer_ticket"`
	TargetTicket   TicketID  `json:"target_ticket"`
	Sequence       uint64    `json:"sequence"`
	OfferedAt      time.Time `json:"offered_at"`
}

// PurchaseReceipt is returned by a committed primary purchase.
type PurchaseReceipt struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	TicketID      TicketID        `json:"ticket_id"`
	Buyer         uuid.UUID       `json:"buyer"`
	Amount        decimal.Decimal `json:"amount"`
}

// SwapSettlement is returned by a committed swap.
type SwapSettlement struct {
	Proposer           uuid.UUID `json:"proposer"`
	Counterparty       uuid.UUID `json:"counterparty"`
	ProposerReceived   TicketID  `json:"proposer_received"`
	CounterpartyGained TicketID  `json:"counterparty_received"`
}

// ResaleSettlement is returned by a committed resale purchase. Fee plus
// SellerAmount always equals Price.
type ResaleSettlement struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	TicketID      TicketID        `json:"ticket_id"`
	Seller        uuid.UUID       `json:"seller"`
	Buyer         uuid.UUID       `json:"buyer"`
	Manager       uuid.UUID       `json:"manager"`
	Price         decimal.Decimal `json:"price"`
	Fee           decimal.Decimal `json:"fee"`
	SellerAmount  decimal.Decimal `json:"seller_amount"`
}

// ReturnReceipt is returned by a committed ticket return.
type ReturnReceipt struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	TicketID      TicketID        `json:"ticket_id"`
	Holder        uuid.UUID       `json:"holder"`
	FaceValue     decimal.Decimal `json:"face_value"`
	ServiceFee    decimal.Decimal `json:"service_fee"`
	Refund        decimal.Decimal `json:"refund"`
}
