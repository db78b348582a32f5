package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resume-analyzer/internal/domain/user"
	resume_errors "resume-analyzer/pkg/errors"
)

const emailIndexName = "email_ci_unique"

// emailCollation compares strings ignoring case but not diacritics.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &MongoUserRepository{coll: db.Collection(user.CollectionName)}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *user.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	doc := bson.M{
		"email":      strings.TrimSpace(u.Email),
		"password":   u.Password,
		"role":       u.EffectiveRole(),
		"created_at": u.CreatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return resume_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

// GetUserByEmail matches the whole address case-insensitively. The collation
// lets the lookup use the email index when it exists.
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	opts := options.FindOne().SetCollation(emailCollation)
	err := r.coll.FindOne(ctx, bson.M{"email": strings.TrimSpace(email)}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, resume_errors.ErrNotFound
		}
		return user.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": hash, "password_updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return resume_errors.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) ListUsers(ctx context.Context, page, limit int) ([]user.User, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	cursor, err := r.coll.Find(ctx, bson.M{}, pageOptions(page, limit))
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var users []user.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (r *MongoUserRepository) ListLegacyPasswordUsers(ctx context.Context) ([]user.User, error) {
	cursor, err := r.coll.Find(ctx, legacyPasswordFilter())
	if err != nil {
		return nil, fmt.Errorf("list legacy users: %w", err)
	}

	var users []user.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode legacy users: %w", err)
	}
	return users, nil
}

// EnsureIndexes creates the case-insensitive unique email index. It fails if
// the collection already holds addresses differing only by case.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName(emailIndexName).
			SetUnique(true).
			SetCollation(emailCollation),
	}
	if _, err := r.coll.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// legacyPasswordFilter selects non-empty string passwords lacking the bcrypt prefix.
func legacyPasswordFilter() bson.M {
	return bson.M{
		"password": bson.M{
			"$type": "string",
			"$ne":   "",
			"$not":  primitive.Regex{Pattern: `^\$2`},
		},
	}
}

func pageOptions(page, limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "email", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetCollation(emailCollation)
}
