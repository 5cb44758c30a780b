// Package ledger records the value transfers that accompany ownership changes.
package ledger

import (
	"context"
	"sync"
	"time"

	"ticketsale/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	// KindExternal is the outside world: incoming payments are drawn from it
	// and it may run negative.
	KindExternal AccountKind = "external"
	// KindTreasury holds the proceeds the system retains.
	KindTreasury AccountKind = "treasury"
	// KindHolder is an identity's payout account.
	KindHolder AccountKind = "holder"
)

type Account struct {
	Kind   AccountKind `json:"kind"`
	Holder uuid.UUID   `json:"holder,omitempty"`
}

var (
	External = Account{Kind: KindExternal}
	Treasury = Account{Kind: KindTreasury}
)

// Holder returns the payout account of an identity.
func Holder(id uuid.UUID) Account {
	return Account{Kind: KindHolder, Holder: id}
}

type Transfer struct {
	From   Account
	To     Account
	Amount decimal.Decimal
}

type LedgerPosting struct {
	TransactionID uuid.UUID
	Memo          string
	Transfers     []Transfer
}

// Received is the total drawn from the external account by this posting.
func (p *LedgerPosting) Received() decimal.Decimal {
	total := decimal.Zero
	for _, t := range p.Transfers {
		if t.From == External {
			total = total.Add(t.Amount)
		}
	}
	return total
}

type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// Entry is an immutable journal line.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Account       Account         `json:"account"`
	EntryType     EntryType       `json:"entry_type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Memo          string          `json:"memo,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Service struct {
	mu       sync.RWMutex
	balances map[Account]decimal.Decimal
	entries  []Entry
	now      func() time.Time
}

func NewService() *Service {
	return &Service{
		balances: make(map[Account]decimal.Decimal),
		now:      time.Now,
	}
}

// PostTransaction applies every transfer in the posting or none of them.
// A posting that would overdraw any non-external account fails with
// ErrInsufficientBalance.
func (s *Service) PostTransaction(_ context.Context, posting *LedgerPosting) error {
	if posting == nil || len(posting.Transfers) == 0 {
		return errors.Wrap(errors.ErrInvalidTransfer, "empty posting")
	}
	for _, t := range posting.Transfers {
		if !t.Amount.IsPositive() {
			return errors.Wrapf(errors.ErrInvalidTransfer, "amount %s", t.Amount)
		}
		if t.From == t.To {
			return errors.Wrap(errors.ErrInvalidTransfer, "transfer to self")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage balances so a failure leaves the book untouched
	staged := make(map[Account]decimal.Decimal)
	balance := func(a Account) decimal.Decimal {
		if b, ok := staged[a]; ok {
			return b
		}
		return s.balances[a]
	}
	for _, t := range posting.Transfers {
		staged[t.From] = balance(t.From).Sub(t.Amount)
		staged[t.To] = balance(t.To).Add(t.Amount)
		if t.From != External && staged[t.From].IsNegative() {
			return errors.Wrapf(errors.ErrInsufficientBalance, "%s account", t.From.Kind)
		}
	}

	txID := posting.TransactionID
	if txID == uuid.Nil {
		txID = uuid.New()
		posting.TransactionID = txID
	}
	now := s.now().UTC()
	running := make(map[Account]decimal.Decimal)
	for _, t := range posting.Transfers {
		for _, line := range []struct {
			account Account
			typ     EntryType
			delta   decimal.Decimal
		}{
			{t.From, EntryDebit, t.Amount.Neg()},
			{t.To, EntryCredit, t.Amount},
		} {
			cur, ok := running[line.account]
			if !ok {
				cur = s.balances[line.account]
			}
			cur = cur.Add(line.delta)
			running[line.account] = cur
			s.entries = append(s.entries, Entry{
				ID:            uuid.New(),
				TransactionID: txID,
				Account:       line.account,
				EntryType:     line.typ,
				Amount:        t.Amount,
				BalanceAfter:  cur,
				Memo:          posting.Memo,
				CreatedAt:     now,
			})
		}
	}
	for a, b := range staged {
		s.balances[a] = b
	}
	return nil
}

func (s *Service) Balance(a Account) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[a]
}

// Journal returns a copy of every entry in posting order.
func (s *Service) Journal() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
