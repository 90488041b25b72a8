package http

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/mailer"
	"finanz/internal/services"
)

type familyDTO struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedBy string      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	Members   []memberDTO `json:"members,omitempty"`
}

type memberDTO struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	family, err := s.families.Create(r.Context(), uid, sanitizeInput(req.Name))
	if err != nil {
		if errors.Is(err, core.ErrEmptyName) {
			writeError(w, http.StatusUnprocessableEntity, "family name is required")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, familyDTO{
		ID:        family.ID,
		Name:      family.Name,
		CreatedBy: family.CreatedBy,
		CreatedAt: family.CreatedAt,
	})
}

func (s *Server) handleMyFamily(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	view, err := s.families.ForUser(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := familyDTO{
		ID:        view.Family.ID,
		Name:      view.Family.Name,
		CreatedBy: view.Family.CreatedBy,
		CreatedAt: view.Family.CreatedAt,
		Members:   make([]memberDTO, len(view.Members)),
	}
	for i, m := range view.Members {
		dto.Members[i] = memberDTO{
			UserID:    m.Member.UserID,
			Role:      string(m.Member.Role),
			JoinedAt:  m.Member.JoinedAt,
			FullName:  m.Profile.FullName,
			AvatarURL: m.Profile.AvatarURL,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeleteFamily(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.families.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := sanitizeInput(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	added, err := s.families.AddMemberByEmail(r.Context(), uid, r.PathValue("id"), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	members, err := s.families.Members(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]memberDTO, len(members))
	for i, m := range members {
		out[i] = memberDTO{
			UserID:    m.Member.UserID,
			Role:      string(m.Member.Role),
			JoinedAt:  m.Member.JoinedAt,
			FullName:  m.Profile.FullName,
			AvatarURL: m.Profile.AvatarURL,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	err := s.families.RemoveMember(r.Context(), uid, r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rankingEntryDTO struct {
	UserID    string `json:"user_id"`
	Points    int    `json:"points"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Position  int    `json:"position"`
}

func toRankingDTOs(entries []core.RankingEntry) []rankingEntryDTO {
	out := make([]rankingEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = rankingEntryDTO{
			UserID:    e.UserID,
			Points:    e.Points,
			FullName:  e.FullName,
			AvatarURL: e.AvatarURL,
			Position:  i + 1,
		}
	}
	return out
}

// familyIDForUser resolves the caller's family or answers 404.
func (s *Server) familyIDForUser(w http.ResponseWriter, r *http.Request, uid string) (string, bool) {
	membership, err := s.store.GetMembership(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return "", false
	}
	if membership == nil {
		writeServiceError(w, services.ErrNoFamily)
		return "", false
	}
	return membership.FamilyID, true
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	familyID, ok := s.familyIDForUser(w, r, uid)
	if !ok {
		return
	}
	entries := s.ranking.Current(r.Context(), familyID)
	writeJSON(w, http.StatusOK, toRankingDTOs(entries))
}

func (s *Server) handleLastWinner(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	familyID, ok := s.familyIDForUser(w, r, uid)
	if !ok {
		return
	}

	winner := s.ranking.LastWinner(r.Context(), familyID)
	if winner == nil {
		writeJSON(w, http.StatusOK, map[string]any{"winner": nil})
		return
	}
	dto := toRankingDTOs([]core.RankingEntry{*winner})[0]
	writeJSON(w, http.StatusOK, map[string]any{"winner": dto})
}

type inviteEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// handleSendInviteEmail mails a family invitation. A missing provider key is
// a soft failure: the invite flow proceeds, just without email.
func (s *Server) handleSendInviteEmail(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Email       string `json:"email"`
		FamilyName  string `json:"familyName"`
		InviterName string `json:"inviterName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := sanitizeInput(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	if s.mailer == nil {
		writeJSON(w, http.StatusOK, inviteEmailResponse{
			Success: false,
			Message: "email service not configured, invitation not sent",
		})
		return
	}

	id, err := s.mailer.SendInvite(r.Context(), mailer.Invite{
		To:         email,
		FamilyName: sanitizeInput(req.FamilyName),
		Inviter:    sanitizeInput(req.InviterName),
		Link:       s.inviteLink,
	})
	if err != nil {
		if errors.Is(err, mailer.ErrNoAPIKey) {
			writeJSON(w, http.StatusOK, inviteEmailResponse{
				Success: false,
				Message: "email service not configured, invitation not sent",
			})
			return
		}
		var provErr *mailer.ProviderError
		if errors.As(err, &provErr) {
			writeJSON(w, http.StatusBadRequest, inviteEmailResponse{
				Success: false,
				Error:   provErr.Message,
			})
			return
		}
		s.logger.ErrorContext(r.Context(), "Invite email failed",
			log.FieldError, err,
			log.FieldEmail, email,
			log.FieldUserID, uid)
		writeJSON(w, http.StatusInternalServerError, inviteEmailResponse{
			Success: false,
			Error:   "failed to send invitation email",
		})
		return
	}

	writeJSON(w, http.StatusOK, inviteEmailResponse{
		Success: true,
		Data:    map[string]string{"id": id},
	})
}
