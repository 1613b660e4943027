package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

// httpStatus maps the error taxonomy onto HTTP status codes.
func httpStatus(err error) int {
	switch common.Kind(err) {
	case common.ErrInvalidInput:
		return http.StatusBadRequest
	case common.ErrNotFound:
		return http.StatusNotFound
	case common.ErrConflict, common.ErrNotReady:
		return http.StatusConflict
	case common.ErrUnreadableDocument, common.ErrUnsupportedDocument:
		return http.StatusUnprocessableEntity
	case common.ErrExtractionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the AppError code, or INTERNAL for anything else.
func errorCode(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) && common.Kind(err) != common.ErrInternal {
		return appErr.Code
	}
	return "INTERNAL"
}

func abortWithError(c *gin.Context, err error) {
	status := httpStatus(err)
	log := common.LoggerFrom(c.Request.Context(), nil)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	} else {
		log.Debug("request rejected", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      common.UserMessage(err),
		"code":       errorCode(err),
		"request_id": GetRequestID(c),
	})
}
