package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

// UserStore implements repository.UserRepository.
type UserStore struct {
	mutex sync.RWMutex
	users []domain.User
}

// NewUserStore creates a store seeded with users.
func NewUserStore(users ...domain.User) *UserStore {
	s := &UserStore{}
	for _, u := range users {
		_ = s.Create(context.Background(), &u)
	}
	return s
}

var _ repository.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users = append(s.users, *user)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.ID == id })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *UserStore) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []domain.User{}
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return result, nil
	}
	for _, u := range s.users {
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, u.Role) {
			continue
		}
		if len(filter.EmployeeIDs) > 0 && (u.EmployeeID == "" || !slices.Contains(filter.EmployeeIDs, u.EmployeeID)) {
			continue
		}
		if filter.VerifiedOnly && !u.IsVerified {
			continue
		}
		result = append(result, u)
	}
	return result, nil
}

func (s *UserStore) find(match func(domain.User) bool) (*domain.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}
