package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/auth"
	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/metrics"
	"github.com/prn-tf/minimarket/internal/repository"
)

// dummyPassword is hashed once and verified against when a login names an
// unknown user, so both failure paths cost one hash verification.
const dummyPassword = "minimarket-timing-equalizer"

// UserService handles registration, authentication and sessions.
type UserService struct {
	userRepo repository.UserRepository
	cartRepo repository.CartRepository
	hasher   auth.PasswordHasher
	tokens   auth.TokenIssuer
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// UserServiceConfig contains the dependencies of a UserService.
type UserServiceConfig struct {
	UserRepo repository.UserRepository
	CartRepo repository.CartRepository
	Hasher   auth.PasswordHasher
	Tokens   auth.TokenIssuer
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(cfg UserServiceConfig) *UserService {
	return &UserService{
		userRepo: cfg.UserRepo,
		cartRepo: cfg.CartRepo,
		hasher:   cfg.Hasher,
		tokens:   cfg.Tokens,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With().Str("service", "user").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	Username string
	Password string
}

// LoginOutput contains a freshly issued session.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// =============================================================================
// Registration
// =============================================================================

// Register creates a user and provisions an empty cart for it.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := domain.NormalizeUsername(input.Username)
	if err := domain.ValidateCredentials(username, input.Password); err != nil {
		s.metrics.RecordAuthAttempt("register", false)
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(username, passwordHash)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			s.metrics.RecordAuthAttempt("register", false)
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if _, err := s.cartRepo.EnsureCart(ctx, user.ID, user.CreatedAt); err != nil {
		// GetCart provisions lazily, so a failure here is not fatal.
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to provision cart")
	}

	s.metrics.RecordAuthAttempt("register", true)
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return user, nil
}

// =============================================================================
// Authentication
// =============================================================================

// Authenticate verifies credentials. An unknown username and a wrong password
// both return domain.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().Err(err).Str("username", username).Msg("failed to load user")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		s.verifyDummy(password)
		s.logger.Debug().Str("username", username).Msg("unknown user during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash is unusable")
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		s.logger.Debug().Int64("user_id", user.ID).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to prepare dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(s.dummyHash, password)
	}
}

// Login authenticates and issues a new session token. Earlier tokens stay valid.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginOutput, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		s.metrics.RecordAuthAttempt("login", false)
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordAuthAttempt("login", true)
	s.metrics.RecordSessionIssued()
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Time("expires_at", expiresAt).
		Msg("user logged in")

	return &LoginOutput{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Resolve maps a session token to the identity of its user.
// Implements auth.IdentityResolver.
func (s *UserService) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return domain.Identity{}, domain.ErrUnauthenticated
		}
		s.logger.Error().Err(err).Msg("failed to resolve session")
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, domain.ErrUnauthenticated
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to load session user")
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return user.Identity(), nil
}

// Logout revokes token. Returns false when the token could not be revoked,
// which is always the case for self-signed tokens.
func (s *UserService) Logout(ctx context.Context, token string) (bool, error) {
	revoked, err := s.tokens.Revoke(ctx, token)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to revoke session")
		return false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return revoked, nil
}

// =============================================================================
// Lookup
// =============================================================================

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username, ignoring case.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}
