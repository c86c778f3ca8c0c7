package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/service"
)

// ContactHandler serves the public contact form.
type ContactHandler struct {
	contactService *service.ContactService
	maxBodySize    int64
	logger         zerolog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contactService *service.ContactService, maxBodySize int64, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		maxBodySize:    maxBodySize,
		logger:         logger.With().Str("handler", "contact").Logger(),
	}
}

// RegisterRoutes mounts the contact route.
func (h *ContactHandler) RegisterRoutes(r chi.Router) {
	r.Post("/contact", h.handleContact)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponse struct {
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

func (h *ContactHandler) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	msg, err := h.contactService.Submit(r.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, contactResponse{
		Status:     "ok",
		Message:    "Thank you for contacting Mini Market.",
		ReceivedAt: msg.ReceivedAt,
	})
}
