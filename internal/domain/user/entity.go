package user

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// CollectionName is the MongoDB collection holding user documents.
const CollectionName = "users"

// bcryptPrefix marks a modular-crypt bcrypt hash ($2a$, $2b$, $2y$).
const bcryptPrefix = "$2"

// User represents a document in the users collection. The password field is
// kept raw because older records store it as plaintext strings or as binary
// hash bytes.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Password  bson.RawValue      `bson:"password,omitempty"`
	Role      string             `bson:"role,omitempty"`
	CreatedAt time.Time          `bson:"created_at,omitempty"`
}

// EffectiveRole falls back to RoleUser for documents without a role.
func (u User) EffectiveRole() string {
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

func (u User) StoredPassword() StoredPassword {
	return ClassifyPassword(u.Password)
}

func (u User) HasLegacyPassword() bool {
	return u.StoredPassword().Kind == PasswordPlaintext
}

type PasswordKind int

const (
	PasswordMissing PasswordKind = iota
	PasswordPlaintext
	PasswordHashed
)

func (k PasswordKind) String() string {
	switch k {
	case PasswordPlaintext:
		return "plaintext"
	case PasswordHashed:
		return "hashed"
	default:
		return "missing"
	}
}

type StoredPassword struct {
	Kind  PasswordKind
	Value []byte
}

// ClassifyPassword decides how a stored password field must be verified.
// Strings without the bcrypt prefix are legacy plaintext; binary values are
// always hash bytes. Empty, null and other BSON types are unusable.
func ClassifyPassword(raw bson.RawValue) StoredPassword {
	switch raw.Type {
	case bsontype.String:
		s, ok := raw.StringValueOK()
		if !ok || s == "" {
			return StoredPassword{}
		}
		if strings.HasPrefix(s, bcryptPrefix) {
			return StoredPassword{Kind: PasswordHashed, Value: []byte(s)}
		}
		return StoredPassword{Kind: PasswordPlaintext, Value: []byte(s)}
	case bsontype.Binary:
		_, data, ok := raw.BinaryOK()
		if !ok || len(data) == 0 {
			return StoredPassword{}
		}
		return StoredPassword{Kind: PasswordHashed, Value: data}
	default:
		return StoredPassword{}
	}
}

// PasswordValue encodes a password string as a raw BSON value.
func PasswordValue(password string) bson.RawValue {
	t, data, err := bson.MarshalValue(password)
	if err != nil {
		return bson.RawValue{}
	}
	return bson.RawValue{Type: t, Value: data}
}

// BinaryPasswordValue encodes hash bytes the way legacy writers stored them.
func BinaryPasswordValue(hash []byte) bson.RawValue {
	t, data, err := bson.MarshalValue(primitive.Binary{Subtype: bsontype.BinaryGeneric, Data: hash})
	if err != nil {
		return bson.RawValue{}
	}
	return bson.RawValue{Type: t, Value: data}
}
