package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"resume-analyzer/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error

	ListUsers(ctx context.Context, page, limit int) ([]user.User, int64, error)
	ListLegacyPasswordUsers(ctx context.Context) ([]user.User, error)

	EnsureIndexes(ctx context.Context) error
}
