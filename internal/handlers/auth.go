package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aydinberk/sumchat/internal/metrics"
	"github.com/aydinberk/sumchat/internal/middleware"
	"github.com/aydinberk/sumchat/internal/models"
	"github.com/aydinberk/sumchat/internal/service"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Auth *service.AuthService
}

// userSummary is the client-visible slice of a user record. The password hash
// never leaves the store layer.
type userSummary struct {
	ID        int        `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func summarize(u *models.User) userSummary {
	return userSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type sessionResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    userSummary `json:"user"`
}

// ==========================
// Register
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	user, tok, err := h.Auth.Register(r.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			JSONValidationError(w, "validation failed", verr.Fields, http.StatusBadRequest)
		case errors.Is(err, service.ErrConflict):
			JSONError(w, "username or email already in use", http.StatusConflict)
		default:
			slog.Error("register failed", "err", err)
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Success: true, Token: tok, User: summarize(user)})
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, tok, err := h.Auth.Login(r.Context(), strings.TrimSpace(input.Username), input.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Same response for unknown user and wrong password.
			metrics.IncAuthFailure("credentials")
			JSONError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		slog.Error("login failed", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Token: tok, User: summarize(user)})
}

// ==========================
// Logout
// ==========================
// Logout only acknowledges: tokens are stateless, so the real invalidation is
// the client discarding its copy. The session guard has already verified the
// caller, which keeps the endpoint from being a no-auth noise target.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ==========================
// UserInfo
// ==========================
func (h *AuthHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Auth.UserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			metrics.IncAuthFailure("token")
			JSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		slog.Error("userinfo failed", "user_id", id, "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    summarize(user),
	})
}

// ==========================
// VerifyToken
// ==========================
// VerifyToken always answers 200 with a plain validity flag; it exists so
// clients can check a stored token without triggering the 401 recovery path.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Token == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}

	valid := h.Auth.VerifyToken(r.Context(), input.Token)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
