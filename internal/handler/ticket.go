// Package handler exposes the ticket sale over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"ticketsale/internal/domain"
	"ticketsale/internal/middleware"
	"ticketsale/internal/sale"
	"ticketsale/pkg/errors"
	"ticketsale/pkg/validator"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type TicketHandler struct {
	service   *sale.Service
	validator *validator.Validator
	logger    Logger
}

func NewTicketHandler(service *sale.Service, val *validator.Validator, log Logger) *TicketHandler {
	return &TicketHandler{service: service, validator: val, logger: log}
}

type paymentRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

type resaleRequest struct {
	Price string `json:"price" validate:"required,amount"`
}

// statusFor maps the sale error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidTicketID),
		errors.Is(err, errors.ErrNoSwapOfferFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrIncorrectPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, errors.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrTicketAlreadyOwned),
		errors.Is(err, errors.ErrAlreadyOwnsTicket),
		errors.Is(err, errors.ErrTicketNotForSale),
		errors.Is(err, errors.ErrStaleOffer),
		errors.Is(err, errors.ErrInsufficientBalance),
		errors.Is(err, errors.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, errors.ErrSelfSwap),
		errors.Is(err, errors.ErrInvalidPrice),
		errors.Is(err, errors.ErrInvalidIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// BuyTicket handles POST /tickets/{id}/purchase.
func (h *TicketHandler) BuyTicket(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndTicket(w, r)
	if !ok {
		return
	}
	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.BuyTicket(r.Context(), caller, id, amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, receipt)
}

// GetTicket handles GET /tickets/{id}.
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}
	tk, err := h.service.Ticket(id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tk)
}

// GetTicketOf handles GET /holders/{identity}/ticket. Holders without a
// ticket get ticket_id 0.
func (h *TicketHandler) GetTicketOf(w http.ResponseWriter, r *http.Request) {
	holder, ok := h.pathIdentity(w, r, "identity")
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"holder":    holder,
		"ticket_id": h.service.TicketOf(holder),
	})
}

// OfferSwap handles POST /tickets/{id}/swap-offers.
func (h *TicketHandler) OfferSwap(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndTicket(w, r)
	if !ok {
		return
	}
	offer, err := h.service.OfferSwap(r.Context(), caller, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, offer)
}

// AcceptSwap handles POST /tickets/{id}/swap-accept.
func (h *TicketHandler) AcceptSwap(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndTicket(w, r)
	if !ok {
		return
	}
	settlement, err := h.service.AcceptSwap(r.Context(), caller, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, settlement)
}

// WithdrawSwap handles DELETE /swap-offers/{counterparty}.
func (h *TicketHandler) WithdrawSwap(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	counterparty, ok := h.pathIdentity(w, r, "counterparty")
	if !ok {
		return
	}
	if err := h.service.WithdrawSwap(r.Context(), caller, counterparty); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSwapOffer handles GET /swap-offers/{proposer}/{counterparty}.
func (h *TicketHandler) GetSwapOffer(w http.ResponseWriter, r *http.Request) {
	proposer, ok := h.pathIdentity(w, r, "proposer")
	if !ok {
		return
	}
	counterparty, ok := h.pathIdentity(w, r, "counterparty")
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"proposer":     proposer,
		"counterparty": counterparty,
		"ticket_id":    h.service.SwapOffer(proposer, counterparty),
	})
}

// ListForResale handles POST /resale.
func (h *TicketHandler) ListForResale(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req resaleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondValidationErrors(w, errs)
		return
	}
	price, _ := decimal.NewFromString(strings.TrimSpace(req.Price))

	id, err := h.service.ResaleTicket(r.Context(), caller, price)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticket_id": id,
		"price":     price,
	})
}

// CancelResale handles DELETE /resale.
func (h *TicketHandler) CancelResale(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := h.service.CancelResale(r.Context(), caller)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"ticket_id": id})
}

// CheckResale handles GET /resale.
func (h *TicketHandler) CheckResale(w http.ResponseWriter, r *http.Request) {
	ids := make([]domain.TicketID, 0)
	for id := range h.service.CheckResale() {
		ids = append(ids, id)
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": ids,
		"total":   len(ids),
	})
}

// AcceptResale handles POST /tickets/{id}/resale-purchase.
func (h *TicketHandler) AcceptResale(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndTicket(w, r)
	if !ok {
		return
	}
	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	settlement, err := h.service.AcceptResale(r.Context(), caller, id, amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, settlement)
}

// ReturnTicket handles POST /tickets/{id}/return.
func (h *TicketHandler) ReturnTicket(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndTicket(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.ReturnTicket(r.Context(), caller, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, receipt)
}

// GetManager handles GET /manager.
func (h *TicketHandler) GetManager(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"manager":  h.service.Manager(),
		"tickets":  h.service.TicketCount(),
		"treasury": h.service.Treasury(),
	})
}

// GetBalance handles GET /balances/{identity}.
func (h *TicketHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	holder, ok := h.pathIdentity(w, r, "identity")
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"holder":  holder,
		"balance": h.service.Balance(holder),
	})
}

func (h *TicketHandler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return caller, true
}

func (h *TicketHandler) ticketID(w http.ResponseWriter, r *http.Request) (domain.TicketID, bool) {
	n, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid ticket id")
		return domain.NoTicket, false
	}
	return domain.TicketID(n), true
}

func (h *TicketHandler) callerAndTicket(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.TicketID, bool) {
	caller, ok := h.caller(w, r)
	if !ok {
		return uuid.Nil, domain.NoTicket, false
	}
	id, ok := h.ticketID(w, r)
	if !ok {
		return uuid.Nil, domain.NoTicket, false
	}
	return caller, id, true
}

func (h *TicketHandler) pathIdentity(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *TicketHandler) decodeAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req paymentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return decimal.Zero, false
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondValidationErrors(w, errs)
		return decimal.Zero, false
	}
	amount, _ := decimal.NewFromString(strings.TrimSpace(req.Amount))
	return amount, true
}

func (h *TicketHandler) respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Ticket operation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, status, "Internal server error")
		return
	}
	h.respondError(w, status, err.Error())
}

func (h *TicketHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("json encode failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *TicketHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *TicketHandler) respondValidationErrors(w http.ResponseWriter, errs map[string]string) {
	h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":             "Validation failed",
		"validation_errors": errs,
	})
}
