package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/domain"
)

// Contact form limits, in characters.
const (
	MaxContactNameLength    = 100
	MaxContactMessageLength = 5000
)

// ContactMessage is a validated contact form submission.
type ContactMessage struct {
	Name       string
	Email      string
	Message    string
	ReceivedAt time.Time
}

// ContactNotifier delivers contact messages to the shop staff.
type ContactNotifier interface {
	Notify(ctx context.Context, msg ContactMessage) error
}

// ContactService accepts contact form submissions.
type ContactService struct {
	notifier ContactNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewContactService creates a new ContactService.
func NewContactService(notifier ContactNotifier, logger zerolog.Logger) *ContactService {
	return &ContactService{
		notifier: notifier,
		logger:   logger.With().Str("service", "contact").Logger(),
		now:      time.Now,
	}
}

// ContactInput contains a raw contact form submission.
type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// Submit validates and forwards a message. Delivery failures are logged and
// do not fail the submission.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*ContactMessage, error) {
	msg, err := validateContact(input)
	if err != nil {
		return nil, err
	}
	msg.ReceivedAt = s.now().UTC()

	if err := s.notifier.Notify(ctx, *msg); err != nil {
		s.logger.Error().Err(err).Str("email", msg.Email).Msg("failed to deliver contact message")
	}
	return msg, nil
}

func validateContact(input ContactInput) (*ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxContactNameLength {
		return nil, domain.NewDomainError(domain.ErrInvalidRequest,
			fmt.Sprintf("name must be between 1 and %d characters", MaxContactNameLength), "name")
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(input.Email))
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrInvalidEmail, "invalid email address", "email")
	}

	message := strings.TrimSpace(input.Message)
	if message == "" || utf8.RuneCountInString(message) > MaxContactMessageLength {
		return nil, domain.NewDomainError(domain.ErrInvalidRequest,
			fmt.Sprintf("message must be between 1 and %d characters", MaxContactMessageLength), "message")
	}

	return &ContactMessage{Name: name, Email: addr.Address, Message: message}, nil
}
