package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"resume-analyzer/internal/domain/user"
	resume_errors "resume-analyzer/pkg/errors"
)

// MemoryUserRepository is an in-process UserRepository for tests and local
// tooling. Email matching mirrors the Mongo collation: case-insensitive.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]user.User

	// UpdateErr, when set, is returned by UpdatePassword.
	UpdateErr error
}

func NewMemoryUserRepository(seed ...user.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[primitive.ObjectID]user.User)}
	for _, u := range seed {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.findLocked(u.Email); ok {
		return resume_errors.ErrAlreadyExists
	}
	u.ID = primitive.NewObjectID()
	u.Role = u.EffectiveRole()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.findLocked(email)
	if !ok {
		return user.User{}, resume_errors.ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return resume_errors.ErrNotFound
	}
	u.Password = user.PasswordValue(hash)
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepository) ListUsers(ctx context.Context, page, limit int) ([]user.User, int64, error) {
	all := r.sorted()
	total := int64(len(all))

	start := (page - 1) * limit
	if start >= len(all) {
		return []user.User{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *MemoryUserRepository) ListLegacyPasswordUsers(ctx context.Context) ([]user.User, error) {
	var legacy []user.User
	for _, u := range r.sorted() {
		if u.HasLegacyPassword() {
			legacy = append(legacy, u)
		}
	}
	return legacy, nil
}

func (r *MemoryUserRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

// Get returns the stored user by email, for assertions in tests.
func (r *MemoryUserRepository) Get(email string) (user.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(email)
}

func (r *MemoryUserRepository) findLocked(email string) (user.User, bool) {
	email = strings.TrimSpace(email)
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return user.User{}, false
}

func (r *MemoryUserRepository) sorted() []user.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].Email) < strings.ToLower(all[j].Email)
	})
	return all
}
