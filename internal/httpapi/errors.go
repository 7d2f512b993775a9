package httpapi

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorCodeBadRequest         = "invalid_request"
	errorCodeConflict           = "conflict"
	errorCodeForbidden          = "forbidden"
	errorCodeInternal           = "internal"
	errorCodeInvalidCredentials = "invalid_credentials"
	errorCodeInvalidGranularity = "invalid_granularity"
	errorCodeInvalidPayload     = "invalid_payload"
	errorCodeInvalidState       = "invalid_state"
	errorCodeNotFound           = "not_found"
	errorCodeSchedulingConflict = "scheduling_conflict"
	errorCodeUnauthorized       = "unauthorized"
	internalErrorMessage        = "internal error"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is ordered; the first match wins.
var errorMappings = []errorMapping{
	{target: auth.ErrInvalidCredentials, status: http.StatusUnauthorized, code: errorCodeInvalidCredentials},
	{target: rental.ErrNotFound, status: http.StatusNotFound, code: errorCodeNotFound},
	{target: rental.ErrSchedulingConflict, status: http.StatusConflict, code: errorCodeSchedulingConflict},
	{target: rental.ErrInvalidState, status: http.StatusConflict, code: errorCodeInvalidState},
	{target: rental.ErrDuplicateNumberPlate, status: http.StatusConflict, code: errorCodeConflict},
	{target: rental.ErrDuplicateEmail, status: http.StatusConflict, code: errorCodeConflict},
	{target: rental.ErrModelInUse, status: http.StatusConflict, code: errorCodeConflict},
	{target: rental.ErrUnauthorized, status: http.StatusForbidden, code: errorCodeForbidden},
	{target: rental.ErrInvalidGranularity, status: http.StatusBadRequest, code: errorCodeInvalidGranularity},
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			ctx.JSON(mapping.status, errorResponse(mapping.code, err.Error()))
			return
		}
	}
	if rental.IsDomainError(err) {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeBadRequest, err.Error()))
		return
	}
	handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, errorResponse(errorCodeInternal, internalErrorMessage))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
