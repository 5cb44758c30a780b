// Package sale is the ticket sale controller. Every public operation runs as
// one transaction against the registry, ownership index, swap book, resale
// market and ledger: validation, the value transfer and the ownership change
// either all commit or the call is rejected with no effect.
package sale

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketsale/internal/domain"
	"ticketsale/internal/ledger"
	"ticketsale/internal/notification"
	"ticketsale/internal/ownership"
	"ticketsale/internal/registry"
	"ticketsale/internal/resale"
	"ticketsale/internal/swap"
	"ticketsale/pkg/config"
	"ticketsale/pkg/errors"
	"ticketsale/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// LedgerService commits value transfers. PostTransaction must apply a posting
// fully or not at all.
type LedgerService interface {
	PostTransaction(ctx context.Context, posting *ledger.LedgerPosting) error
	Balance(a ledger.Account) decimal.Decimal
}

type Service struct {
	// mu is the single serialisation point. Mutations hold it exclusively,
	// queries share it, so no reader sees a half-applied transition.
	mu sync.RWMutex
	// pubMu is taken before mu is released, so batches reach the
	// publisher in commit order.
	pubMu    sync.Mutex
	eventSeq uint64

	registry *registry.Registry
	index    *ownership.Index
	offers   *swap.Book
	market   *resale.Market

	ledger    LedgerService
	publisher notification.Publisher
	logger    logger.Logger

	manager uuid.UUID
	refund  config.RefundPolicy
}

// NewService builds the ledger for cfg. manager is the creator identity that
// receives resale fees; it is fixed for the lifetime of the service.
func NewService(
	cfg config.SaleConfig,
	manager uuid.UUID,
	ledgerService LedgerService,
	publisher notification.Publisher,
	log logger.Logger,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if manager == uuid.Nil {
		return nil, errors.Wrap(errors.ErrInvalidConfiguration, "manager identity required")
	}

	reg, err := registry.New(cfg.NumTickets, cfg.UnitPrice)
	if err != nil {
		return nil, err
	}
	market, err := resale.NewMarket(reg, cfg.ResaleFeePercent)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Service{
		registry:  reg,
		index:     ownership.NewIndex(),
		offers:    swap.NewBook(),
		market:    market,
		ledger:    ledgerService,
		publisher: publisher,
		logger:    log,
		manager:   manager,
		refund:    cfg.Refund,
	}, nil
}

// transact runs fn under the write lock, then logs the outcome and publishes
// the committed events once the lock is released.
func (s *Service) transact(ctx context.Context, op string, fields map[string]interface{}, fn func() ([]domain.Event, error)) error {
	s.mu.Lock()
	events, err := fn()
	if err == nil && len(events) > 0 {
		s.pubMu.Lock()
		defer s.pubMu.Unlock()
	}
	s.mu.Unlock()

	fields["operation"] = op
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		fields["correlation_id"] = id
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Ticket operation rejected", fields)
		return err
	}
	s.logger.Info("Ticket operation committed", fields)

	if len(events) > 0 {
		if perr := s.publisher.Publish(ctx, events...); perr != nil {
			s.logger.Error("Failed to publish ticket events", map[string]interface{}{
				"operation": op,
				"error":     perr.Error(),
			})
		}
	}
	return nil
}

// header stamps the next commit sequence. Callers hold mu.
func (s *Service) header() domain.EventHeader {
	s.eventSeq++
	return domain.NewEventHeader(s.eventSeq)
}

// bind updates the index for a transition whose preconditions were checked
// under the same lock; a failure here means the index and registry diverged.
func (s *Service) bind(holder uuid.UUID, id domain.TicketID) {
	if err := s.index.Bind(holder, id); err != nil {
		panic("sale: ownership index out of sync: " + err.Error())
	}
}

func (s *Service) post(ctx context.Context, memo string, transfers ...ledger.Transfer) (uuid.UUID, error) {
	var nonZero []ledger.Transfer
	for _, t := range transfers {
		if t.Amount.IsPositive() {
			nonZero = append(nonZero, t)
		}
	}
	if len(nonZero) == 0 {
		return uuid.Nil, nil
	}
	posting := &ledger.LedgerPosting{
		TransactionID: uuid.New(),
		Memo:          memo,
		Transfers:     nonZero,
	}
	if err := s.ledger.PostTransaction(ctx, posting); err != nil {
		return uuid.Nil, errors.Wrap(err, "value transfer failed")
	}
	return posting.TransactionID, nil
}

// BuyTicket sells an unowned ticket to payer for exactly its price. The
// proceeds stay in the treasury.
func (s *Service) BuyTicket(ctx context.Context, payer uuid.UUID, id domain.TicketID, amount decimal.Decimal) (*domain.PurchaseReceipt, error) {
	var receipt *domain.PurchaseReceipt
	fields := map[string]interface{}{"ticket_id": id, "payer": payer, "amount": amount.String()}

	err := s.transact(ctx, "buy_ticket", fields, func() ([]domain.Event, error) {
		if payer == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		tk, err := s.registry.Get(id)
		if err != nil {
			return nil, err
		}
		if tk.Owned() {
			return nil, errors.Wrapf(errors.ErrTicketAlreadyOwned, "ticket %d", id)
		}
		if !amount.Equal(tk.Price) {
			return nil, errors.Wrapf(errors.ErrIncorrectPayment, "paid %s, price %s", amount, tk.Price)
		}
		if held := s.index.TicketOf(payer); held != domain.NoTicket {
			return nil, errors.Wrapf(errors.ErrAlreadyOwnsTicket, "holds ticket %d", held)
		}

		txID, err := s.post(ctx, "purchase", ledger.Transfer{From: ledger.External, To: ledger.Treasury, Amount: tk.Price})
		if err != nil {
			return nil, err
		}

		s.registry.SetOwner(id, payer)
		s.bind(payer, id)
		s.market.Clear(id)

		receipt = &domain.PurchaseReceipt{TransactionID: txID, TicketID: id, Buyer: payer, Amount: tk.Price}
		return []domain.Event{domain.TicketPurchased{
			Header:   s.header(),
			TicketID: id,
			Buyer:    payer,
			Amount:   tk.Price,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// OfferSwap records that proposer offers their ticket in exchange for target.
// A later offer to the same counterparty replaces the earlier one.
func (s *Service) OfferSwap(ctx context.Context, proposer uuid.UUID, target domain.TicketID) (*domain.SwapOffer, error) {
	var offer domain.SwapOffer
	fields := map[string]interface{}{"proposer": proposer, "target_ticket": target}

	err := s.transact(ctx, "offer_swap", fields, func() ([]domain.Event, error) {
		if proposer == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		own := s.index.TicketOf(proposer)
		if own == domain.NoTicket {
			return nil, errors.ErrNotOwner
		}
		tk, err := s.registry.Get(target)
		if err != nil {
			return nil, err
		}
		if !tk.Owned() {
			return nil, errors.Wrapf(errors.ErrInvalidTicketID, "ticket %d is unowned", target)
		}
		if tk.Owner == proposer {
			return nil, errors.ErrSelfSwap
		}

		offer = s.offers.Put(domain.SwapKey{Proposer: proposer, Counterparty: tk.Owner}, own, target)
		return []domain.Event{domain.SwapOffered{
			Header:         s.header(),
			Proposer:       proposer,
			Counterparty:   tk.Owner,
			ProposerTicket: own,
			TargetTicket:   target,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// AcceptSwap settles the oldest valid offer made to caller for target, which
// caller must own. Offers whose proposer no longer holds the recorded ticket
// are purged; if only such offers existed the call fails with ErrStaleOffer.
func (s *Service) AcceptSwap(ctx context.Context, caller uuid.UUID, target domain.TicketID) (*domain.SwapSettlement, error) {
	var settlement domain.SwapSettlement
	fields := map[string]interface{}{"caller": caller, "target_ticket": target}

	err := s.transact(ctx, "accept_swap", fields, func() ([]domain.Event, error) {
		if caller == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		tk, err := s.registry.Get(target)
		if err != nil {
			return nil, err
		}
		if tk.Owner != caller {
			return nil, errors.Wrapf(errors.ErrNotOwner, "ticket %d", target)
		}

		candidates := s.offers.AddressedTo(caller, target)
		if len(candidates) == 0 {
			return nil, errors.ErrNoSwapOfferFound
		}
		var chosen *domain.SwapOffer
		for i := range candidates {
			o := candidates[i]
			offered, err := s.registry.Get(o.ProposerTicket)
			if err != nil || offered.Owner != o.Key.Proposer {
				s.offers.Delete(o.Key)
				fields["purged_stale"] = o.Key.Proposer
				continue
			}
			chosen = &o
			break
		}
		if chosen == nil {
			return nil, errors.ErrStaleOffer
		}

		proposer, given := chosen.Key.Proposer, chosen.ProposerTicket
		s.index.Unbind(proposer)
		s.index.Unbind(caller)
		s.registry.SetOwner(target, proposer)
		s.registry.SetOwner(given, caller)
		s.bind(proposer, target)
		s.bind(caller, given)
		s.market.Clear(target)
		s.market.Clear(given)
		s.offers.Delete(chosen.Key)

		settlement = domain.SwapSettlement{
			Proposer:           proposer,
			Counterparty:       caller,
			ProposerReceived:   target,
			CounterpartyGained: given,
		}
		return []domain.Event{domain.SwapSettled{Header: s.header(), Settlement: settlement}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// WithdrawSwap removes proposer's pending offer to counterparty.
func (s *Service) WithdrawSwap(ctx context.Context, proposer, counterparty uuid.UUID) error {
	fields := map[string]interface{}{"proposer": proposer, "counterparty": counterparty}
	return s.transact(ctx, "withdraw_swap", fields, func() ([]domain.Event, error) {
		if proposer == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		if !s.offers.Delete(domain.SwapKey{Proposer: proposer, Counterparty: counterparty}) {
			return nil, errors.ErrNoSwapOfferFound
		}
		return []domain.Event{domain.SwapWithdrawn{
			Header:       s.header(),
			Proposer:     proposer,
			Counterparty: counterparty,
		}}, nil
	})
}

// ResaleTicket lists the caller's ticket at price.
func (s *Service) ResaleTicket(ctx context.Context, caller uuid.UUID, price decimal.Decimal) (domain.TicketID, error) {
	var listed domain.TicketID
	fields := map[string]interface{}{"caller": caller, "price": price.String()}

	err := s.transact(ctx, "resale_ticket", fields, func() ([]domain.Event, error) {
		if caller == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		id := s.index.TicketOf(caller)
		if id == domain.NoTicket {
			return nil, errors.ErrNotOwner
		}
		if err := s.market.List(id, price); err != nil {
			return nil, err
		}
		listed = id
		fields["ticket_id"] = id
		return []domain.Event{domain.ResaleListed{
			Header:   s.header(),
			TicketID: id,
			Seller:   caller,
			Price:    price,
		}}, nil
	})
	if err != nil {
		return domain.NoTicket, err
	}
	return listed, nil
}

// CancelResale withdraws the caller's listing.
func (s *Service) CancelResale(ctx context.Context, caller uuid.UUID) (domain.TicketID, error) {
	var cleared domain.TicketID
	fields := map[string]interface{}{"caller": caller}

	err := s.transact(ctx, "cancel_resale", fields, func() ([]domain.Event, error) {
		if caller == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		id := s.index.TicketOf(caller)
		if id == domain.NoTicket {
			return nil, errors.ErrNotOwner
		}
		if !s.market.IsListed(id) {
			return nil, errors.Wrapf(errors.ErrTicketNotForSale, "ticket %d", id)
		}
		s.market.Clear(id)
		cleared = id
		return []domain.Event{domain.ResaleCancelled{Header: s.header(), TicketID: id, Seller: caller}}, nil
	})
	if err != nil {
		return domain.NoTicket, err
	}
	return cleared, nil
}

// AcceptResale buys a listed ticket for exactly its listing price. The fee
// goes to the manager and the remainder to the seller in the same posting.
func (s *Service) AcceptResale(ctx context.Context, buyer uuid.UUID, id domain.TicketID, amount decimal.Decimal) (*domain.ResaleSettlement, error) {
	var settlement domain.ResaleSettlement
	fields := map[string]interface{}{"ticket_id": id, "buyer": buyer, "amount": amount.String()}

	err := s.transact(ctx, "accept_resale", fields, func() ([]domain.Event, error) {
		if buyer == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		tk, err := s.registry.Get(id)
		if err != nil {
			return nil, err
		}
		if !tk.ForSale {
			return nil, errors.Wrapf(errors.ErrTicketNotForSale, "ticket %d", id)
		}
		if !amount.Equal(tk.Price) {
			return nil, errors.Wrapf(errors.ErrIncorrectPayment, "paid %s, price %s", amount, tk.Price)
		}
		if held := s.index.TicketOf(buyer); held != domain.NoTicket {
			return nil, errors.Wrapf(errors.ErrAlreadyOwnsTicket, "holds ticket %d", held)
		}

		seller := tk.Owner
		fee, sellerAmount := s.market.Split(tk.Price)
		txID, err := s.post(ctx, "resale",
			ledger.Transfer{From: ledger.External, To: ledger.Treasury, Amount: tk.Price},
			ledger.Transfer{From: ledger.Treasury, To: ledger.Holder(s.manager), Amount: fee},
			ledger.Transfer{From: ledger.Treasury, To: ledger.Holder(seller), Amount: sellerAmount},
		)
		if err != nil {
			return nil, err
		}

		s.index.Unbind(seller)
		s.registry.SetOwner(id, buyer)
		s.bind(buyer, id)
		s.market.Clear(id)

		settlement = domain.ResaleSettlement{
			TransactionID: txID,
			TicketID:      id,
			Seller:        seller,
			Buyer:         buyer,
			Manager:       s.manager,
			Price:         tk.Price,
			Fee:           fee,
			SellerAmount:  sellerAmount,
		}
		return []domain.Event{domain.ResaleSettled{Header: s.header(), Settlement: settlement}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// ReturnTicket puts caller's ticket back in the pool at face value and pays
// the face value less the service fee back to the caller.
func (s *Service) ReturnTicket(ctx context.Context, caller uuid.UUID, id domain.TicketID) (*domain.ReturnReceipt, error) {
	var receipt domain.ReturnReceipt
	fields := map[string]interface{}{"ticket_id": id, "caller": caller}

	err := s.transact(ctx, "return_ticket", fields, func() ([]domain.Event, error) {
		if caller == uuid.Nil {
			return nil, errors.ErrInvalidIdentity
		}
		tk, err := s.registry.Get(id)
		if err != nil {
			return nil, err
		}
		if tk.Owner != caller {
			return nil, errors.Wrapf(errors.ErrNotOwner, "ticket %d", id)
		}

		face := s.registry.UnitPrice()
		fee, refund := s.refundSplit(face)
		txID, err := s.post(ctx, "refund", ledger.Transfer{From: ledger.Treasury, To: ledger.Holder(caller), Amount: refund})
		if err != nil {
			return nil, err
		}

		s.market.Clear(id)
		s.registry.SetPrice(id, face)
		s.registry.SetOwner(id, uuid.Nil)
		s.index.Unbind(caller)

		receipt = domain.ReturnReceipt{
			TransactionID: txID,
			TicketID:      id,
			Holder:        caller,
			FaceValue:     face,
			ServiceFee:    fee,
			Refund:        refund,
		}
		fields["refund"] = refund.String()
		return []domain.Event{domain.TicketReturned{Header: s.header(), Receipt: receipt}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// refundSplit applies the refund policy to a face value. The fee never
// exceeds the face value.
func (s *Service) refundSplit(face decimal.Decimal) (fee, refund decimal.Decimal) {
	switch s.refund.Mode {
	case config.RefundPercent:
		fee = face.Mul(s.refund.Value).Div(hundred).Floor()
	default:
		fee = s.refund.Value
	}
	if fee.GreaterThan(face) {
		fee = face
	}
	return fee, face.Sub(fee)
}

// Ticket returns a snapshot of ticket id.
func (s *Service) Ticket(id domain.TicketID) (domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Get(id)
}

// TicketOf returns the holder's ticket, or domain.NoTicket.
func (s *Service) TicketOf(holder uuid.UUID) domain.TicketID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.TicketOf(holder)
}

// SwapOffer returns the ticket proposer has offered counterparty, or domain.NoTicket.
func (s *Service) SwapOffer(proposer, counterparty uuid.UUID) domain.TicketID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers.Get(domain.SwapKey{Proposer: proposer, Counterparty: counterparty})
	if !ok {
		return domain.NoTicket
	}
	return o.ProposerTicket
}

// CheckResale returns the ticket ids listed for resale, ascending. The
// sequence iterates a snapshot taken at call time and can be ranged repeatedly.
func (s *Service) CheckResale() iter.Seq[domain.TicketID] {
	s.mu.RLock()
	ids := s.market.Listings()
	s.mu.RUnlock()
	return resale.Seq(ids)
}

func (s *Service) Manager() uuid.UUID {
	return s.manager
}

// Balance returns the payout balance credited to holder.
func (s *Service) Balance(holder uuid.UUID) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Balance(ledger.Holder(holder))
}

// Treasury returns the funds the system currently retains.
func (s *Service) Treasury() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Balance(ledger.Treasury)
}

func (s *Service) TicketCount() int {
	return s.registry.Count()
}
