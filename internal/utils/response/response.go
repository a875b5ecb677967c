package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/logger"
)

// OK writes a 200 JSON payload.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Message writes {"message": msg}.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Error maps err to an APIError, logs 5xx and aborts the request.
func Error(c *gin.Context, err error) {
	apiErr := apierrors.Map(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// BadBody reports a request body that failed binding.
func BadBody(c *gin.Context, err error) {
	Error(c, apierrors.InvalidArgument(err.Error()))
}
