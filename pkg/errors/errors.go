// Package errors provides the ticket sale error taxonomy and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Ticket sale errors. Every one of them is caller-facing: the request is
// rejected with no state change and may be resubmitted once corrected.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidTicketID      = errors.New("invalid ticket id")
	ErrTicketAlreadyOwned   = errors.New("ticket already owned")
	ErrIncorrectPayment     = errors.New("incorrect payment amount")
	ErrNotOwner             = errors.New("caller does not own a ticket")
	ErrSelfSwap             = errors.New("cannot swap with yourself")
	ErrNoSwapOfferFound     = errors.New("no swap offer found")
	ErrStaleOffer           = errors.New("swap offer is stale")
	ErrTicketNotForSale     = errors.New("ticket not for sale")
	ErrAlreadyOwnsTicket    = errors.New("caller already owns a ticket")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidIdentity      = errors.New("invalid identity")

	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransfer     = errors.New("invalid transfer")

	// Transport errors
	ErrDuplicateRequest = errors.New("duplicate request")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
