package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/authkeeper/internal/api/http/response"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{model.ErrRefreshTokenMissing, "refresh_token_missing"},
	{model.ErrRefreshTokenInvalid, "refresh_token_invalid"},
	{model.ErrRefreshTokenExpired, "refresh_token_expired"},
	{model.ErrRefreshTokenReused, "refresh_token_reused"},
	{model.ErrInvalidCredentials, "invalid_credentials"},
	{model.ErrTooManyAttempts, "too_many_attempts"},
	{model.ErrEmailTaken, "email_taken"},
	{model.ErrProviderAccountTaken, "provider_account_taken"},
	{model.ErrOAuthEmailMissing, "oauth_email_missing"},
	{model.ErrUserNotFound, "user_not_found"},
	{model.ErrUnknownProvider, "unknown_provider"},
	{model.ErrInvalidAccessToken, "invalid_access_token"},
}

func errorCode(err error, kind model.Kind) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return kind.String()
}

// responder writes service errors and owns the refresh cookie.
type responder struct {
	cookies Cookies
	logger  *logger.Logger
}

// fail maps err to a status and error body. Security errors also drop the refresh cookie.
func (rp responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)

	var status int
	switch kind {
	case model.KindValidation:
		status = http.StatusBadRequest
	case model.KindAuth:
		status = http.StatusUnauthorized
	case model.KindSecurity:
		status = http.StatusUnauthorized
		rp.cookies.ClearRefresh(w)
	case model.KindConflict:
		status = http.StatusConflict
	default:
		rp.logger.Error("HTTP handler: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err.Error())
		response.Error(w, http.StatusInternalServerError, response.ErrorDetail{
			Code:    kind.String(),
			Message: "internal server error",
		})
		return
	}

	detail := response.ErrorDetail{
		Code:    errorCode(err, kind),
		Message: err.Error(),
	}
	var fe *fieldsError
	if errors.As(err, &fe) {
		detail.Message = "request validation failed"
		detail.Fields = fe.fields
	}

	response.Error(w, status, detail)
}
