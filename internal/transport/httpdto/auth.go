package httpdto

// LoginRequest is used for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned after successful login. The token itself travels
// only in the access_token cookie.
type LoginResponse struct {
	Message   string `json:"message"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}

// VerifyTokenResponse is returned by GET /auth/verify_token
type VerifyTokenResponse struct {
	Valid bool           `json:"valid"`
	User  SessionUserDTO `json:"user"`
}

// SessionUserDTO mirrors the decoded session token claims.
type SessionUserDTO struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat,omitempty"`
	TokenID   string `json:"jti,omitempty"`
}

// SessionCookieName is the cookie holding the session token.
const SessionCookieName = "access_token"
