package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/http/middleware"
	"github.com/youthorg/admingate/internal/http/response"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/security"
	"github.com/youthorg/admingate/internal/service"
)

type AuthHandler struct {
	admission    *service.AdmissionService
	sessions     *service.SessionService
	cookieSecure bool
	loginPath    string
}

func NewAuthHandler(admission *service.AdmissionService, sessions *service.SessionService, cookieSecure bool, loginPath string) *AuthHandler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &AuthHandler{admission: admission, sessions: sessions, cookieSecure: cookieSecure, loginPath: loginPath}
}

type loginRequest struct {
	Credential string           `json:"credential"`
	Location   *domain.Location `json:"location,omitempty"`
}

type loginResponse struct {
	Session   domain.SessionToken `json:"session"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Credential == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "credential is required", nil)
		return
	}
	res, err := h.admission.Login(r.Context(), service.LoginInput{
		Credential: req.Credential,
		Device:     security.DeviceFromRequest(r),
		Location:   req.Location,
	})
	if err != nil {
		observability.Audit(r, "auth.login.rejected", "error", err.Error())
		writeServiceError(w, r, err)
		return
	}
	security.SetSessionCookie(w, res.Token, h.admission.TokenTTL(), h.cookieSecure)
	observability.Audit(r, "auth.login", "user_id", res.Session.UserID, "session_id", res.Session.SessionID)
	response.JSON(w, r, http.StatusOK, loginResponse{Session: res.Payload, ExpiresAt: res.ExpiresAt})
}

type logoutRequest struct {
	Location *domain.Location `json:"location,omitempty"`
}

// Logout always clears the cookie and answers 200, even when the body or the
// token cannot be read.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			req = logoutRequest{}
		}
	}
	h.sessions.Logout(r.Context(), middleware.SessionToken(r), req.Location)
	security.ClearSessionCookie(w, h.cookieSecure)
	observability.Audit(r, "auth.logout")
	response.JSON(w, r, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (h *AuthHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	valid := h.sessions.IsSessionValid(r.Context(), middleware.SessionToken(r))
	response.JSON(w, r, http.StatusOK, map[string]bool{"valid": valid})
}

// Revoked clears a dead session cookie and forwards to the login page.
func (h *AuthHandler) Revoked(w http.ResponseWriter, r *http.Request) {
	security.ClearSessionCookie(w, h.cookieSecure)
	target := h.loginPath + "?" + url.Values{"error": {"session_revoked"}}.Encode()
	response.SeeOther(w, r, target)
}
