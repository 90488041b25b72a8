package http

import (
	"errors"
	"net/http"
	"time"

	"finanz/internal/core"
	"finanz/internal/services"
	"finanz/internal/storage"
)

type transactionDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FamilyID    string    `json:"family_id,omitempty"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	IsRecurring bool      `json:"is_recurring"`
	Points      int       `json:"points"`
}

func toTransactionDTO(tx core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          tx.ID,
		UserID:      tx.UserID,
		FamilyID:    tx.FamilyID,
		Kind:        string(tx.Kind),
		Amount:      core.FormatAmount(tx.Amount),
		Category:    tx.Category,
		Name:        tx.Name,
		Description: tx.Description,
		Date:        tx.Date,
		IsRecurring: tx.IsRecurring,
		Points:      tx.Points,
	}
}

func toTransactionDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionDTO(tx)
	}
	return out
}

type transactionRequest struct {
	Kind         string `json:"kind"`
	Amount       string `json:"amount"`
	Category     string `json:"category"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	Installments int    `json:"installments"`
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrUnknownCategory) ||
		errors.Is(err, core.ErrZeroDate) ||
		errors.Is(err, core.ErrInvalidDay)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}

	created, err := s.transactions.Create(r.Context(), scope, services.CreateTransactionInput{
		Kind:         core.TransactionKind(req.Kind),
		Amount:       amount,
		Category:     sanitizeInput(req.Category),
		Name:         sanitizeInput(req.Name),
		Description:  sanitizeInput(req.Description),
		Date:         date,
		Installments: req.Installments,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	s.summaryCache.DeletePrefix(scopeCachePrefix(scope))
	writeJSON(w, http.StatusCreated, toTransactionDTOs(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	kind := core.TransactionKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "invalid kind, want income or expense")
		return
	}

	year, month := parseYearMonth(r)
	txs, err := s.ledger.MonthTransactions(r.Context(), scope, year, month, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}

	updated, err := s.transactions.Update(r.Context(), scope, r.PathValue("id"), services.UpdateTransactionInput{
		Kind:        core.TransactionKind(req.Kind),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	s.summaryCache.DeletePrefix(scopeCachePrefix(scope))
	writeJSON(w, http.StatusOK, toTransactionDTO(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), scope, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.DeletePrefix(scopeCachePrefix(scope))
	w.WriteHeader(http.StatusNoContent)
}

type resetResponse struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) resetScope(w http.ResponseWriter, r *http.Request) (storage.Scope, bool) {
	uid, ok := userID(w, r)
	if !ok {
		return storage.Scope{}, false
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return storage.Scope{}, false
	}
	return scope, true
}

func (s *Server) handleResetMonth(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resetScope(w, r)
	if !ok {
		return
	}
	year, month := parseYearMonth(r)
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	n, err := s.transactions.ResetMonth(r.Context(), scope, ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.DeletePrefix(scopeCachePrefix(scope))
	writeJSON(w, http.StatusOK, resetResponse{Deleted: n})
}

func (s *Server) handleResetFuture(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resetScope(w, r)
	if !ok {
		return
	}
	n, err := s.transactions.ResetFuture(r.Context(), scope, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.DeletePrefix(scopeCachePrefix(scope))
	writeJSON(w, http.StatusOK, resetResponse{Deleted: n})
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resetScope(w, r)
	if !ok {
		return
	}
	n, err := s.transactions.ResetAll(r.Context(), scope)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.summaryCache.DeletePrefix(scopeCachePrefix(scope))
	writeJSON(w, http.StatusOK, resetResponse{Deleted: n})
}
