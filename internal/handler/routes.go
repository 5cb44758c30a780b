package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"ticketsale/internal/middleware"
	"ticketsale/pkg/logger"
)

// RouterDeps are the pieces NewRouter wires together. Idempotency and
// RateLimit are optional; they are skipped when nil.
type RouterDeps struct {
	Tickets     *TicketHandler
	Feed        *FeedHandler
	Auth        *middleware.AuthMiddleware
	Idempotency *middleware.IdempotencyMiddleware
	RateLimit   *middleware.RateLimiter
	Logger      logger.Logger
}

func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(d.Logger).Log)
	r.Use(middleware.BodyLimit(1 << 20))

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(d.Auth.Authenticate)
	if d.RateLimit != nil {
		api.Use(d.RateLimit.Limit)
	}
	if d.Idempotency != nil {
		api.Use(d.Idempotency.Require)
	}

	t := d.Tickets
	api.HandleFunc("/tickets/{id:[0-9]+}", t.GetTicket).Methods(http.MethodGet)
	api.HandleFunc("/tickets/{id:[0-9]+}/purchase", t.BuyTicket).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id:[0-9]+}/swap-offers", t.OfferSwap).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id:[0-9]+}/swap-accept", t.AcceptSwap).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id:[0-9]+}/resale-purchase", t.AcceptResale).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id:[0-9]+}/return", t.ReturnTicket).Methods(http.MethodPost)
	api.HandleFunc("/holders/{identity}/ticket", t.GetTicketOf).Methods(http.MethodGet)
	api.HandleFunc("/swap-offers/{counterparty}", t.WithdrawSwap).Methods(http.MethodDelete)
	api.HandleFunc("/swap-offers/{proposer}/{counterparty}", t.GetSwapOffer).Methods(http.MethodGet)
	api.HandleFunc("/resale", t.CheckResale).Methods(http.MethodGet)
	api.HandleFunc("/resale", t.ListForResale).Methods(http.MethodPost)
	api.HandleFunc("/resale", t.CancelResale).Methods(http.MethodDelete)
	api.HandleFunc("/manager", t.GetManager).Methods(http.MethodGet)
	api.HandleFunc("/balances/{identity}", t.GetBalance).Methods(http.MethodGet)
	if d.Feed != nil {
		api.HandleFunc("/feed", d.Feed.WebSocketHandler).Methods(http.MethodGet)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
