// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"net/http"

	"resume-analyzer/internal/services"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the attributes of the session cookie. The frontend
// is served from another site, so production uses Secure with SameSite=None.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	service *services.AuthService
	cookie  CookieConfig
	logger  *logger.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(service *services.AuthService, cookie CookieConfig, l *logger.Logger) *AuthHandler {
	if l == nil {
		l = logger.NewNop()
	}
	return &AuthHandler{service: service, cookie: cookie, logger: l}
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("email and password are required", httpdto.CodeInvalidRequest))
		return
	}

	res, err := h.service.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	h.setSessionCookie(c, res.Token, int(res.ExpiresIn))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.LoginResponse{
		Message:   "login successful",
		Role:      res.Role,
		ExpiresIn: res.ExpiresIn,
	}))
}

// VerifyToken reports the claims of the session cookie.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	token, _ := c.Cookie(httpdto.SessionCookieName)

	claims, err := h.service.VerifyToken(c.Request.Context(), token)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.VerifyTokenResponse{
		Valid: true,
		User:  toSessionUserDTO(claims),
	}))
}

// Logout revokes the current token when possible and always clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(httpdto.SessionCookieName)

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		h.logger.WithContext(c.Request.Context()).Sugar().Errorf("token revocation failed: %v", err)
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MessageResponse{Message: "logout successful"}))
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(httpdto.SessionCookieName, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func toSessionUserDTO(claims services.SessionClaims) httpdto.SessionUserDTO {
	dto := httpdto.SessionUserDTO{
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		dto.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		dto.IssuedAt = claims.IssuedAt.Unix()
	}
	return dto
}
