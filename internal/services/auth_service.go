package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-analyzer/config"
	"resume-analyzer/internal/domain/user"
	"resume-analyzer/internal/repository"
	resume_errors "resume-analyzer/pkg/errors"
	"resume-analyzer/pkg/events"
	"resume-analyzer/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenRevoker stores the IDs of session tokens invalidated by logout.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService struct {
	userRepo  repository.UserRepository
	revoker   TokenRevoker
	events    events.Publisher
	logger    *logger.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService wires the credential store and token settings. revoker may
// be nil, in which case logout only clears the client cookie.
func NewAuthService(userRepo repository.UserRepository, revoker TokenRevoker, cfg *config.Config, l *logger.Logger) *AuthService {
	if l == nil {
		l = logger.NewNop()
	}
	return &AuthService{
		userRepo:  userRepo,
		revoker:   revoker,
		logger:    l,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  time.Duration(cfg.JWTExpiryMin) * time.Minute,
		now:       time.Now,
	}
}

// SetEventPublisher enables audit events on events.AuthChannel.
func (s *AuthService) SetEventPublisher(p events.Publisher) {
	s.events = p
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token     string
	Role      string
	ExpiresAt time.Time
	ExpiresIn int64
}

// SessionClaims is the payload of the session token.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Login verifies the credentials and issues a session token. Accounts still
// holding a plaintext password are upgraded to a bcrypt hash on success.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if err := validateLogin(in); err != nil {
		return LoginResult{}, err
	}

	email := normalizeEmail(in.Email)
	u, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, resume_errors.ErrNotFound) {
			s.publish(ctx, events.TypeLoginFailed, map[string]string{"email": email, "reason": resume_errors.ErrUserNotFound.Error()})
			return LoginResult{}, resume_errors.ErrUserNotFound
		}
		return LoginResult{}, err
	}

	if err := s.checkPassword(ctx, u, in.Password); err != nil {
		s.publish(ctx, events.TypeLoginFailed, map[string]string{"email": email, "reason": err.Error()})
		return LoginResult{}, err
	}

	role := u.EffectiveRole()
	token, expiresAt, err := s.newSessionToken(email, role)
	if err != nil {
		return LoginResult{}, err
	}
	s.publish(ctx, events.TypeLoginSucceeded, map[string]string{"email": email, "role": role})

	return LoginResult{
		Token:     token,
		Role:      role,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(s.tokenTTL.Seconds()),
	}, nil
}

// VerifyToken validates signature, expiry and revocation of a session token.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (SessionClaims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return SessionClaims{}, err
	}

	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return SessionClaims{}, fmt.Errorf("%w: %v", resume_errors.ErrServiceUnavailable, err)
		}
		if revoked {
			return SessionClaims{}, fmt.Errorf("%w: %w", resume_errors.ErrInvalidToken, resume_errors.ErrTokenRevoked)
		}
	}

	return claims, nil
}

// Logout revokes the token until its natural expiry. Unparseable or expired
// tokens are already unusable and are ignored.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" || s.revoker == nil {
		return nil
	}

	claims, err := s.parseToken(tokenString)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	s.publish(ctx, events.TypeLogout, map[string]string{"email": claims.Email, "jti": claims.ID})
	return nil
}

func (s *AuthService) checkPassword(ctx context.Context, u user.User, password string) error {
	stored := u.StoredPassword()

	switch stored.Kind {
	case user.PasswordPlaintext:
		if subtle.ConstantTimeCompare(stored.Value, []byte(password)) != 1 {
			return resume_errors.ErrInvalidPassword
		}
		s.upgradePassword(ctx, u, password)
		return nil
	case user.PasswordHashed:
		if err := bcrypt.CompareHashAndPassword(stored.Value, []byte(password)); err != nil {
			return resume_errors.ErrInvalidPassword
		}
		return nil
	default:
		return resume_errors.ErrInvalidPassword
	}
}

// upgradePassword replaces a verified plaintext password with its hash. A
// failure leaves the plaintext in place and the next login retries.
func (s *AuthService) upgradePassword(ctx context.Context, u user.User, password string) {
	hash, err := hashPassword(password)
	if err != nil {
		s.logger.WithContext(ctx).Sugar().Warnf("password upgrade skipped for %s: %v", u.ID.Hex(), err)
		return
	}
	if err := s.userRepo.UpdatePassword(ctx, u.ID, hash); err != nil {
		s.logger.WithContext(ctx).Sugar().Warnf("password upgrade failed for %s: %v", u.ID.Hex(), err)
		return
	}
	s.logger.WithContext(ctx).Sugar().Infof("upgraded legacy password for %s", u.ID.Hex())
	s.publish(ctx, events.TypePasswordUpgraded, map[string]string{"user_id": u.ID.Hex()})
}

// publish is best effort; audit delivery never changes the auth outcome.
func (s *AuthService) publish(ctx context.Context, eventType string, payload map[string]string) {
	if s.events == nil {
		return
	}
	event := events.Event{Type: eventType, Payload: payload, Timestamp: s.now().Unix()}
	if err := s.events.Publish(ctx, events.AuthChannel, event); err != nil {
		s.logger.WithContext(ctx).Sugar().Warnf("publish %s failed: %v", eventType, err)
	}
}

func (s *AuthService) newSessionToken(email, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parseToken(tokenString string) (SessionClaims, error) {
	if tokenString == "" {
		return SessionClaims{}, resume_errors.ErrMissingToken
	}

	var claims SessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, resume_errors.ErrTokenExpired
		}
		return SessionClaims{}, fmt.Errorf("%w: %v", resume_errors.ErrInvalidToken, err)
	}

	return claims, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, resume_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, resume_errors.ErrUnauthorized),
		errors.Is(err, resume_errors.ErrInvalidPassword),
		errors.Is(err, resume_errors.ErrMissingToken),
		errors.Is(err, resume_errors.ErrTokenExpired),
		errors.Is(err, resume_errors.ErrInvalidToken):
		return 401
	case errors.Is(err, resume_errors.ErrForbidden):
		return 403
	case errors.Is(err, resume_errors.ErrNotFound), errors.Is(err, resume_errors.ErrUserNotFound):
		return 404
	case errors.Is(err, resume_errors.ErrAlreadyExists), errors.Is(err, resume_errors.ErrConflict):
		return 409
	case errors.Is(err, resume_errors.ErrRateLimited):
		return 429
	case errors.Is(err, resume_errors.ErrServiceUnavailable):
		return 503
	default:
		return 500
	}
}

// ClientMessage is the error text safe to return to callers. Server-side
// failures carry infrastructure detail and are replaced by a generic text.
func ClientMessage(err error) string {
	switch HTTPStatus(err) {
	case 500:
		return "internal server error"
	case 503:
		return resume_errors.ErrServiceUnavailable.Error()
	default:
		return err.Error()
	}
}

type ctxKey string

var sessionClaimsKey ctxKey = "session_claims"

func WithSessionClaims(ctx context.Context, claims SessionClaims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

func SessionClaimsFromContext(ctx context.Context) (SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(SessionClaims)
	return claims, ok
}

func validateLogin(in LoginInput) error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return resume_errors.ErrInvalidInput
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
