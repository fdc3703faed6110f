package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"vigil-irs/config"
	"vigil-irs/core/auth"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

const sessionCookie = "vigil_session"

type AuthHandler struct {
	cfg      *config.AppConfig
	users    store.UsersStore
	sessions *auth.SessionManager
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sessions *auth.SessionManager, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessions: sessions, audits: audits, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "auth.bad_payload", "invalid json payload")
		return
	}
	username := strings.TrimSpace(req.Username)
	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		h.logger.Errorf("login lookup %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "auth.internal", "server error")
		return
	}
	if user == nil || !user.Active || !auth.VerifyPassword(req.Password, user.Salt, h.cfg.Pepper, user.PasswordHash) {
		_ = h.audits.Log(r.Context(), username, "auth.login", "failed")
		writeError(w, http.StatusUnauthorized, "auth.invalid", "invalid credentials")
		return
	}
	sess, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.logger.Errorf("login session %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "auth.internal", "server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	_ = h.audits.Log(r.Context(), username, "auth.login", "success")
	writeJSON(w, http.StatusOK, map[string]any{"username": user.Username, "role": user.Role})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess != nil {
		_ = h.sessions.Destroy(r.Context(), sess.ID)
		_ = h.audits.Log(r.Context(), sess.Username, "auth.logout", "")
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "auth.unauthorized", "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": sess.Username, "role": sess.Role})
}
