package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
	guard    RequestGuard
}

func NewSessionHandler(sessions *service.SessionService, guard RequestGuard) *SessionHandler {
	return &SessionHandler{sessions: sessions, guard: guard}
}

type sessionListResponse struct {
	Sessions []service.SessionView `json:"sessions"`
	Elevated bool                  `json:"elevated"`
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	views, err := h.sessions.List(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sessionListResponse{Sessions: views, Elevated: h.sessions.IsElevated(p)})
}

func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "sessionId is required", nil)
		return
	}
	if err := h.sessions.Revoke(r.Context(), p, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "session.revoke", "actor_id", p.UserID, "session_id", sessionID)
	response.JSON(w, r, http.StatusOK, map[string]string{"revoked": sessionID})
}

func (h *SessionHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !admit(w, r, h.guard, p) {
		return
	}
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID != p.SessionID {
		writeServiceError(w, r, service.ErrForbidden)
		return
	}
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patch, err := domain.ParseLocationPatch(raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, err := h.sessions.UpdateLocation(r.Context(), p, sessionID, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, rec)
}
