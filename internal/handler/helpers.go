package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/evonota/evonota/internal/middleware"
	"github.com/evonota/evonota/internal/pkg/errcode"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
	"github.com/evonota/evonota/internal/pkg/response"
)

func getDoctorUID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextDoctorUIDKey)
	doctorUID, _ := value.(string)
	return doctorUID
}

// handleError maps an internal error to the wire envelope. Messages are
// fixed per error class with only the stage label prepended; upstream
// URLs and driver details stay in the logs.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("request_id", middleware.RequestIDOf(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("doctor_uid", getDoctorUID(c)),
		zap.Error(err),
	)
	code, message := classify(err)
	if stage := appErr.StageOf(err); stage != "" {
		message = stage + ": " + message
	}
	response.Error(c, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrUnauthenticated):
		return errcode.ErrUnauthenticated, "missing credential"
	case errors.Is(err, appErr.ErrInvalidCredential):
		return errcode.ErrInvalidCredential, "invalid credential"
	case errors.Is(err, appErr.ErrMissingInput):
		return errcode.ErrBadRequest, "missing input"
	case errors.Is(err, appErr.ErrEmptyInput):
		return errcode.ErrBadRequest, "empty input"
	case errors.Is(err, appErr.ErrUnsupportedFormat):
		return errcode.ErrBadRequest, "unsupported format"
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrBadRequest, "invalid request"
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrConflict):
		return errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrUpstreamUnavailable):
		return errcode.ErrUpstreamUnavailable, "upstream unavailable"
	case errors.Is(err, appErr.ErrUnparsableResponse):
		return errcode.ErrUnparsableResponse, "unparsable upstream response"
	case errors.Is(err, appErr.ErrPersistenceFailure):
		return errcode.ErrPersistenceFailure, "persistence failure"
	default:
		return errcode.ErrInternal, "internal error"
	}
}
