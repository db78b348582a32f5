package handler

import (
	"net/http"

	"resume-analyzer/internal/services"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeServiceError renders a service error in the response envelope.
// Internal failures are logged and answered with a generic message.
func writeServiceError(c *gin.Context, l *logger.Logger, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError && l != nil {
		l.WithContext(c.Request.Context()).Sugar().Errorf("request failed: %v", err)
	}
	c.JSON(status, httpdto.NewErrorResponse(services.ClientMessage(err), httpdto.CodeForStatus(status)))
}
