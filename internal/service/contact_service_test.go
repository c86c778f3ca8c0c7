package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/domain"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, msg ContactMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func TestContactService_Submit(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	notifier.On("Notify", ctx, mock.MatchedBy(func(msg ContactMessage) bool {
		return msg.Name == "Ann" && msg.Email == "ann@example.com" && msg.Message == "Hello"
	})).Return(errors.New("smtp down"))

	svc := NewContactService(notifier, zerolog.Nop())

	msg, err := svc.Submit(ctx, ContactInput{Name: " Ann ", Email: "Ann <ann@example.com>", Message: " Hello "})
	require.NoError(t, err, "delivery failures must not fail the submission")
	require.False(t, msg.ReceivedAt.IsZero())
	notifier.AssertExpectations(t)
}

func TestContactService_Validation(t *testing.T) {
	svc := NewContactService(NewLogNotifier(zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name  string
		input ContactInput
		want  error
	}{
		{name: "empty name", input: ContactInput{Email: "a@b.co", Message: "hi"}, want: domain.ErrInvalidRequest},
		{name: "long name", input: ContactInput{Name: strings.Repeat("n", 101), Email: "a@b.co", Message: "hi"}, want: domain.ErrInvalidRequest},
		{name: "bad email", input: ContactInput{Name: "Ann", Email: "not-an-email", Message: "hi"}, want: domain.ErrInvalidEmail},
		{name: "empty message", input: ContactInput{Name: "Ann", Email: "a@b.co", Message: "   "}, want: domain.ErrInvalidRequest},
		{name: "long message", input: ContactInput{Name: "Ann", Email: "a@b.co", Message: strings.Repeat("m", 5001)}, want: domain.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.input)
			require.ErrorIs(t, err, tt.want)
			require.True(t, domain.IsValidation(err))
		})
	}
}
