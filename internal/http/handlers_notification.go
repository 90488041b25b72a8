package http

import (
	"net/http"
	"time"

	"finanz/internal/core"
)

type notificationDTO struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	notifications, err := s.notifications.List(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]notificationDTO, len(notifications))
	for i, n := range notifications {
		out[i] = notificationDTO{
			ID:        n.ID,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	count, err := s.notifications.UnreadCount(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.notifications.MarkRead(r.Context(), r.PathValue("id"), uid); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.notifications.MarkAllRead(r.Context(), uid); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LimitAmount string `json:"limit_amount"`
	ClosingDay  int    `json:"closing_day"`
	DueDay      int    `json:"due_day"`
}

type cardRequest struct {
	Name        string `json:"name"`
	LimitAmount string `json:"limit_amount"`
	ClosingDay  int    `json:"closing_day"`
	DueDay      int    `json:"due_day"`
}

func toCardDTO(c core.CreditCard) cardDTO {
	return cardDTO{
		ID:          c.ID,
		Name:        c.Name,
		LimitAmount: core.FormatAmount(c.LimitAmount),
		ClosingDay:  c.ClosingDay,
		DueDay:      c.DueDay,
	}
}

func (s *Server) cardFromRequest(w http.ResponseWriter, r *http.Request, uid string) (core.CreditCard, bool) {
	var req cardRequest
	if !decodeBody(w, r, &req) {
		return core.CreditCard{}, false
	}
	limit, err := core.ParseAmount(req.LimitAmount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid limit amount")
		return core.CreditCard{}, false
	}
	return core.CreditCard{
		UserID:      uid,
		Name:        sanitizeInput(req.Name),
		LimitAmount: limit,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
	}, true
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	card, ok := s.cardFromRequest(w, r, uid)
	if !ok {
		return
	}

	created, err := s.cards.Create(r.Context(), card)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardDTO(created))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cards, err := s.cards.List(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]cardDTO, len(cards))
	for i, c := range cards {
		out[i] = toCardDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	card, ok := s.cardFromRequest(w, r, uid)
	if !ok {
		return
	}
	card.ID = r.PathValue("id")

	if err := s.cards.Update(r.Context(), card); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardDTO(card))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.cards.Delete(r.Context(), r.PathValue("id"), uid); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
