package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/auth"
	"github.com/prn-tf/minimarket/internal/service"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	userService *service.UserService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *service.UserService, maxBodySize int64, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes mounts the auth routes. requireAuth guards /me and /logout.
func (h *AuthHandler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.With(requireAuth).Get("/auth/me", h.handleMe)
	r.With(requireAuth).Post("/auth/logout", h.handleLogout)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type loginResponse struct {
	Token       string    `json:"token"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Username    string    `json:"username"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type meResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type logoutResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Revoked bool   `json:"revoked"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Status:  "ok",
		Message: "User registered successfully",
		UserID:  user.ID,
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:       out.Token,
		AccessToken: out.Token,
		TokenType:   "bearer",
		Username:    out.User.Username,
		ExpiresAt:   out.ExpiresAt,
	})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{UserID: identity.UserID, Username: identity.Username})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.TokenFromContext(r.Context())

	revoked, err := h.userService.Logout(r.Context(), token)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, logoutResponse{Status: "ok", Message: "Logged out", Revoked: revoked})
}
