package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"tradeledger/internal/identity"
	"tradeledger/internal/ledger"
	"tradeledger/internal/realtime"
	"tradeledger/internal/repository"
	"tradeledger/types"
)

// Server exposes the ledger over HTTP/JSON. The external identity provider
// terminates authentication upstream; requests arrive with the opaque user id
// in the X-User-ID header and optional display defaults alongside.
type Server struct {
	ledger   *ledger.Ledger
	resolver *identity.Resolver
	hub      *realtime.Hub
	router   http.Handler
	upgrader websocket.Upgrader
}

func NewServer(l *ledger.Ledger, resolver *identity.Resolver, hub *realtime.Hub, allowedOrigins []string) *Server {
	s := &Server{
		ledger:   l,
		resolver: resolver,
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/profile", s.withProfile(s.handleGetProfile)).Methods(http.MethodGet)
	v1.HandleFunc("/profile", s.withProfile(s.handleUpdateProfile)).Methods(http.MethodPut)
	v1.HandleFunc("/portfolios", s.withProfile(s.handleListPortfolios)).Methods(http.MethodGet)
	v1.HandleFunc("/portfolio", s.withProfile(s.handleSnapshot)).Methods(http.MethodGet)
	v1.HandleFunc("/positions", s.withProfile(s.handleListPositions)).Methods(http.MethodGet)
	v1.HandleFunc("/trades", s.withProfile(s.handleListTrades)).Methods(http.MethodGet)
	v1.HandleFunc("/trades", s.withProfile(s.handleExecuteTrade)).Methods(http.MethodPost)
	v1.HandleFunc("/watchlist", s.withProfile(s.handleWatchlist)).Methods(http.MethodGet)
	v1.HandleFunc("/watchlists/{id}", s.withProfile(s.handleUpdateWatchlist)).Methods(http.MethodPut)
	v1.HandleFunc("/alerts", s.withProfile(s.handleListAlerts)).Methods(http.MethodGet)
	v1.HandleFunc("/alerts", s.withProfile(s.handleCreateAlert)).Methods(http.MethodPost)
	v1.HandleFunc("/alerts/{id}", s.withProfile(s.handleSetAlertActive)).Methods(http.MethodPatch)
	v1.HandleFunc("/ws", s.withProfile(s.handleWebSocket)).Methods(http.MethodGet)

	s.router = cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID", "X-User-Email", "X-User-Name", "X-User-Avatar"},
		AllowCredentials: true,
	}).Handler(r)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type profileHandler func(w http.ResponseWriter, r *http.Request, profile *types.Profile)

// withProfile resolves the caller's profile from the identity headers,
// creating it on first sight.
func (s *Server) withProfile(next profileHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		externalID := r.Header.Get("X-User-ID")
		if externalID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing X-User-ID header"})
			return
		}
		profile, err := s.resolver.Resolve(r.Context(), externalID, identity.Defaults{
			Email:     r.Header.Get("X-User-Email"),
			FullName:  r.Header.Get("X-User-Name"),
			AvatarURL: r.Header.Get("X-User-Avatar"),
		})
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		next(w, r, profile)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request, profile *types.Profile) {
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	var req struct {
		Email     string `json:"email"`
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := s.resolver.Update(r.Context(), profile, identity.Defaults{
		Email:     req.Email,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	// Ensure the default exists so a fresh profile never sees an empty list.
	if _, err := s.ledger.EnsureDefaultPortfolio(r.Context(), profile); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	portfolios, err := s.ledger.ListPortfolios(r.Context(), profile)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolios)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	snapshot, err := s.ledger.Snapshot(r.Context(), profile, r.URL.Query().Get("portfolio_id"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	positions, err := s.ledger.ListPositions(r.Context(), profile, r.URL.Query().Get("portfolio_id"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	trades, err := s.ledger.ListTrades(r.Context(), profile, r.URL.Query().Get("portfolio_id"), limit)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	var req struct {
		PortfolioID string          `json:"portfolio_id"`
		Symbol      string          `json:"symbol"`
		Side        types.Side      `json:"side"`
		Quantity    decimal.Decimal `json:"quantity"`
		Price       decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.ledger.ExecuteTrade(r.Context(), profile, ledger.TradeInstruction{
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
	})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.broadcastSnapshot(profile, result.Trade.PortfolioID)
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	watchlist, err := s.ledger.EnsureDefaultWatchlist(r.Context(), profile)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, watchlist)
}

func (s *Server) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ledger.UpdateWatchlistSymbols(r.Context(), profile, mux.Vars(r)["id"], req.Symbols); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	alerts, err := s.ledger.ListActiveAlerts(r.Context(), profile)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	var req struct {
		Symbol      string               `json:"symbol"`
		Condition   types.AlertCondition `json:"condition"`
		TargetPrice decimal.Decimal      `json:"target_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	alert, err := s.ledger.CreateAlert(r.Context(), profile, req.Symbol, req.Condition, req.TargetPrice)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleSetAlertActive(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	var req struct {
		Active bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ledger.SetAlertActive(r.Context(), profile, mux.Vars(r)["id"], req.Active); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, profile *types.Profile) {
	portfolio, err := s.ledger.EnsureDefaultPortfolio(r.Context(), profile)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if id := r.URL.Query().Get("portfolio_id"); id != "" {
		portfolio, err = s.ledger.GetPortfolio(r.Context(), profile, id)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hub.Subscribe(conn, portfolio.ID)

	if snapshot, err := s.ledger.Snapshot(r.Context(), profile, portfolio.ID); err == nil {
		_ = conn.WriteJSON(snapshot)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.Unsubscribe(conn)
			return
		}
	}
}

func (s *Server) broadcastSnapshot(profile *types.Profile, portfolioID string) {
	snapshot, err := s.ledger.Snapshot(context.Background(), profile, portfolioID)
	if err != nil {
		log.Printf("snapshot broadcast failed for %s: %v", portfolioID, err)
		return
	}
	s.hub.Broadcast(portfolioID, snapshot)
}

func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidTradeParams),
		errors.Is(err, ledger.ErrInvalidAlertParams),
		errors.Is(err, ledger.ErrUnknownSide):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
