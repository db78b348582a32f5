package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-analyzer/internal/domain/user"
	"resume-analyzer/internal/repository"
	resume_errors "resume-analyzer/pkg/errors"
	"resume-analyzer/pkg/logger"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	minPasswordLen  = 8
)

// UserService covers account administration: listing, seeding and the bulk
// counterpart of the lazy password upgrade done at login.
type UserService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewUserService(userRepo repository.UserRepository, l *logger.Logger) *UserService {
	if l == nil {
		l = logger.NewNop()
	}
	return &UserService{userRepo: userRepo, logger: l}
}

type UserSummary struct {
	ID             string
	Email          string
	Role           string
	LegacyPassword bool
}

type UserPage struct {
	Users []UserSummary
	Total int64
	Page  int
	Limit int
}

type CreateUserInput struct {
	Email    string
	Password string
	Role     string
}

type UpgradeReport struct {
	Scanned  int
	Upgraded int
	Failed   int
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) (UserPage, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if page < 1 || limit < 1 || limit > MaxPageSize {
		return UserPage{}, resume_errors.ErrInvalidInput
	}

	users, total, err := s.userRepo.ListUsers(ctx, page, limit)
	if err != nil {
		return UserPage{}, err
	}

	result := UserPage{
		Users: make([]UserSummary, 0, len(users)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, u := range users {
		result.Users = append(result.Users, toUserSummary(u))
	}
	return result, nil
}

// EnsureUser creates the account with a hashed password, or returns the
// existing account unchanged when the email is already registered.
func (s *UserService) EnsureUser(ctx context.Context, in CreateUserInput) (UserSummary, bool, error) {
	if err := validateCreateUser(in); err != nil {
		return UserSummary{}, false, err
	}

	email := normalizeEmail(in.Email)
	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err == nil {
		return toUserSummary(existing), false, nil
	}
	if !errors.Is(err, resume_errors.ErrNotFound) {
		return UserSummary{}, false, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return UserSummary{}, false, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Email:    email,
		Password: user.PasswordValue(hash),
		Role:     in.Role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return UserSummary{}, false, err
	}
	return toUserSummary(*u), true, nil
}

// UpgradeLegacyPasswords hashes every remaining plaintext password. Failures
// are counted and logged; the pass continues with the next account.
func (s *UserService) UpgradeLegacyPasswords(ctx context.Context) (UpgradeReport, error) {
	users, err := s.userRepo.ListLegacyPasswordUsers(ctx)
	if err != nil {
		return UpgradeReport{}, err
	}

	report := UpgradeReport{Scanned: len(users)}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		stored := u.StoredPassword()
		if stored.Kind != user.PasswordPlaintext {
			continue
		}

		hash, err := hashPassword(string(stored.Value))
		if err == nil {
			err = s.userRepo.UpdatePassword(ctx, u.ID, hash)
		}
		if err != nil {
			report.Failed++
			s.logger.Warnf("password upgrade failed for %s: %v", u.ID.Hex(), err)
			continue
		}
		report.Upgraded++
	}
	return report, nil
}

func validateCreateUser(in CreateUserInput) error {
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return resume_errors.ErrInvalidInput
	}
	if len(in.Password) < minPasswordLen {
		return resume_errors.ErrInvalidInput
	}
	switch in.Role {
	case "", user.RoleUser, user.RoleAdmin:
		return nil
	default:
		return resume_errors.ErrInvalidInput
	}
}

func toUserSummary(u user.User) UserSummary {
	return UserSummary{
		ID:             u.ID.Hex(),
		Email:          u.Email,
		Role:           u.EffectiveRole(),
		LegacyPassword: u.HasLegacyPassword(),
	}
}
