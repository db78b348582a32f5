package handler

import (
	"net/http"
	"strconv"

	"resume-analyzer/internal/services"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UserHandler serves account administration endpoints.
type UserHandler struct {
	service *services.UserService
	logger  *logger.Logger
}

func NewUserHandler(service *services.UserService, l *logger.Logger) *UserHandler {
	return &UserHandler{service: service, logger: l}
}

// ListUsers handles GET /admin/users?page=&limit=
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("page must be a number", httpdto.CodeInvalidRequest))
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("limit must be a number", httpdto.CodeInvalidRequest))
		return
	}

	result, err := h.service.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	users := make([]httpdto.UserSummaryDTO, len(result.Users))
	for i, u := range result.Users {
		users[i] = httpdto.UserSummaryDTO{
			ID:             u.ID,
			Email:          u.Email,
			Role:           u.Role,
			LegacyPassword: u.LegacyPassword,
		}
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UsersResponse{
		Users: users,
		Total: result.Total,
		Page:  result.Page,
		Limit: result.Limit,
	}))
}

// queryInt returns 0 for an absent parameter so the service applies defaults.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
