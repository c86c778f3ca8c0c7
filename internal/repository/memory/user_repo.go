package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// userRepository implements repository.UserRepository in memory.
type userRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*domain.User
	byLower map[string]int64
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		nextID:  1,
		byID:    make(map[int64]*domain.User),
		byLower: make(map[string]int64),
	}
}

// Create stores a copy of user and assigns its ID.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := domain.UsernameKey(user.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLower[key]; exists {
		return domain.ErrUserAlreadyExists
	}

	user.ID = r.nextID
	r.nextID++

	stored := *user
	r.byID[stored.ID] = &stored
	r.byLower[key] = stored.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

// GetByUsername retrieves a user by username, ignoring case.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byLower[domain.UsernameKey(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

// List returns all users ordered by ID.
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	users := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out := *u
		users = append(users, &out)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
