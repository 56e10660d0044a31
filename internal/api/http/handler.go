package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"lendledger/internal/domain"
	"lendledger/internal/service"
)

// Handler exposes the ledger over a JSON HTTP API.
type Handler struct {
	ledger service.LedgerService
	auth   service.AuthService
}

func NewHandler(ledger service.LedgerService, auth service.AuthService) *Handler {
	return &Handler{ledger: ledger, auth: auth}
}

// RegisterRoutes wires all endpoints onto the router. Everything except
// login sits behind the auth middleware.
func (h *Handler) RegisterRoutes(r *mux.Router, authMW func(http.Handler) http.Handler) {
	r.HandleFunc("/auth/login", h.Login).Methods("POST")

	api := r.NewRoute().Subrouter()
	api.Use(authMW)
	api.HandleFunc("/auth/tokens", h.IssueAccountToken).Methods("POST")

	api.HandleFunc("/deposits", h.Deposit).Methods("POST")
	api.HandleFunc("/withdrawals", h.Withdraw).Methods("POST")
	api.HandleFunc("/redemptions", h.RedeemBorrowerCredit).Methods("POST")
	api.HandleFunc("/loans", h.OriginateLoan).Methods("POST")
	api.HandleFunc("/loans/{id:[0-9]+}/repayment", h.RepayLoan).Methods("POST")
	api.HandleFunc("/borrowers/{id}/limit", h.SetBorrowerLimit).Methods("PUT")

	api.HandleFunc("/lenders", h.ListLenderBalances).Methods("GET")
	api.HandleFunc("/lenders/{id}/balance", h.GetLenderBalance).Methods("GET")
	api.HandleFunc("/borrowers", h.ListBorrowerLimits).Methods("GET")
	api.HandleFunc("/borrowers/{id}/limit", h.GetBorrowerLimit).Methods("GET")
	api.HandleFunc("/loans", h.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{id:[0-9]+}", h.GetLoan).Methods("GET")
	api.HandleFunc("/loans/next-id", h.NextLoanID).Methods("GET")
	api.HandleFunc("/events", h.ListEvents).Methods("GET")
	api.HandleFunc("/audit/conservation", h.ConservationReport).Methods("GET")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Principal string `json:"principal"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Principal, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) IssueAccountToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.IssueAccountToken(r.Context(), caller, req.Account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.ledger.Deposit(r.Context(), principal, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.ledger.Withdraw(r.Context(), principal, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) RedeemBorrowerCredit(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.ledger.RedeemBorrowerCredit(r.Context(), principal, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) SetBorrowerLimit(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}
	borrower := mux.Vars(r)["id"]

	var req struct {
		Limit int64 `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.ledger.SetBorrowerLimit(r.Context(), caller, borrower, req.Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) OriginateLoan(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req struct {
		Principal int64 `json:"principal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, event, err := h.ledger.OriginateLoan(r.Context(), principal, req.Principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"loan":  loan,
		"event": event,
	})
}

func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}
	loanID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.ledger.RepayLoan(r.Context(), principal, loanID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) GetLenderBalance(w http.ResponseWriter, r *http.Request) {
	lender := mux.Vars(r)["id"]
	balance, err := h.ledger.GetLenderBalance(r.Context(), lender)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lender": lender, "balance": balance})
}

func (h *Handler) ListLenderBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.ListLenderBalances(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) GetBorrowerLimit(w http.ResponseWriter, r *http.Request) {
	borrower := mux.Vars(r)["id"]
	limit, err := h.ledger.GetBorrowerLimit(r.Context(), borrower)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"borrower": borrower, "limit": limit})
}

func (h *Handler) ListBorrowerLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := h.ledger.ListBorrowerLimits(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := h.ledger.GetLoan(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if loan == nil {
		writeError(w, http.StatusNotFound, "loan not found")
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	loans, err := h.ledger.ListLoans(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) NextLoanID(w http.ResponseWriter, r *http.Request) {
	next, err := h.ledger.NextLoanID(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"next_loan_id": next})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var limit int64 = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 32)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	events, err := h.ledger.ListEvents(r.Context(), int32(limit))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) ConservationReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.ConservationReport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps ledger error kinds onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrWrongAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrLimitExceeded),
		errors.Is(err, domain.ErrNoLenderAvailable),
		errors.Is(err, domain.ErrLoanNotActive),
		errors.Is(err, domain.ErrNotYourLoan):
		writeError(w, http.StatusConflict, err.Error())
	case domain.IsCollaboratorError(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
