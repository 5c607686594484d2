package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tedkulp/cartulary-go/internal/apperr"
	"github.com/tedkulp/cartulary-go/internal/auth"
	"github.com/tedkulp/cartulary-go/internal/db"
)

// AuthHandler handles the login endpoint (C13).
type AuthHandler struct {
	users   *db.UserRepo
	authSvc *auth.Service
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users *db.UserRepo, authSvc *auth.Service) *AuthHandler {
	return &AuthHandler{users: users, authSvc: authSvc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Register handles POST /v1/auth/register. New accounts are never
// superusers; promoting one is an out-of-band admin action.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}

	if _, err := h.users.GetByEmail(ctx, req.Email); err == nil {
		writeAppErr(w, apperr.Duplicatef(req.Email, "an account with this email already exists"))
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		slog.Error("register: database error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to hash password", err))
		return
	}

	id := uuid.NewString()
	if err := h.users.Insert(ctx, id, req.Email, hash); err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to create user", err))
		return
	}

	slog.Info("user registered", "event", "user_registered", "user_id", id, "email", req.Email)

	writeJSON(w, http.StatusCreated, registerResponse{UserID: id, Email: req.Email})
}

// Login handles POST /v1/auth/login. Validates credentials against the
// users table and returns a signed JWT; deliberately uses the same
// "invalid email or password" message whether the account doesn't exist
// or the password is wrong, so login never reveals which email is
// registered.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			slog.Debug("login failed: user not found", "email", req.Email)
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
			return
		}
		slog.Error("login: database error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "authentication failed")
		return
	}

	if user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.Debug("login failed: bad credentials", "email", req.Email, "user_id", user.ID)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if !user.IsActive {
		slog.Debug("login failed: user deactivated", "email", req.Email, "user_id", user.ID)
		writeError(w, http.StatusUnauthorized, "unauthorized", "account is deactivated")
		return
	}

	token, err := h.authSvc.SignToken(user.ID, user.IsSuperuser)
	if err != nil {
		writeAppErr(w, apperr.Wrap(apperr.Fatal, "failed to sign token", err))
		return
	}

	slog.Info("user logged in", "event", "user_login", "user_id", user.ID, "email", user.Email)

	writeJSON(w, http.StatusOK, loginResponse{
		Token:       token,
		UserID:      user.ID,
		Email:       user.Email,
		IsSuperuser: user.IsSuperuser,
	})
}
