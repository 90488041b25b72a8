package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finanz/internal/services"
	"finanz/internal/storage"
)

// userIDHeader carries the authenticated caller's identity. Authentication
// itself happens upstream; the API trusts the gateway.
const userIDHeader = "X-User-ID"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps service and storage sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotAdmin):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrProfileNotFound), errors.Is(err, services.ErrNoFamily):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrMemberIsAdmin):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrSetupRequired):
		writeError(w, http.StatusServiceUnavailable, "database schema not initialized, run migrations first")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// userID extracts the caller identity, or writes 401 and returns false.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(userIDHeader))
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return "", false
	}
	return id, true
}

// scopeFromRequest resolves the ledger scope. ?scope=family switches to the
// caller's family; anything else is the personal ledger.
func (s *Server) scopeFromRequest(r *http.Request, uid string) (storage.Scope, error) {
	scope := storage.Scope{UserID: uid}
	if r.URL.Query().Get("scope") != "family" {
		return scope, nil
	}
	membership, err := s.store.GetMembership(r.Context(), uid)
	if err != nil {
		return scope, err
	}
	if membership == nil {
		return scope, services.ErrNoFamily
	}
	scope.FamilyID = membership.FamilyID
	return scope, nil
}

// parseYearMonth extracts year and month from query parameters, defaulting
// to the current month.
func parseYearMonth(r *http.Request) (int, time.Month) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return year, time.Month(month)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// summaryCacheKey identifies one scope-month pair; scopeCachePrefix is what
// a write to that scope invalidates.
func summaryCacheKey(scope storage.Scope, year int, month time.Month) string {
	return fmt.Sprintf("%s%04d-%02d", scopeCachePrefix(scope), year, month)
}

func scopeCachePrefix(scope storage.Scope) string {
	if scope.Personal() {
		return "personal:" + scope.UserID + ":"
	}
	return "family:" + scope.FamilyID + ":"
}
