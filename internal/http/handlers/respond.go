package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/geocoder89/sitecms/internal/domain/user"
)

// HTTPError is an error that already knows its response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func NotFound(msg string) error   { return &HTTPError{Status: http.StatusNotFound, Message: msg} }
func Conflict(msg string) error   { return &HTTPError{Status: http.StatusConflict, Message: msg} }
func BadRequest(msg string) error { return &HTTPError{Status: http.StatusBadRequest, Message: msg} }

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{"error": message})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message)
}

func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, "Internal server error")
}

func RespondValidation(ctx *gin.Context, verr *ValidationError) {
	body := gin.H{"error": verr.Error()}
	if len(verr.Fields) > 0 {
		body["fields"] = verr.Fields
	}
	ctx.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// RespondErr maps handler errors onto status codes. Anything unrecognised
// is logged in full and answered with a generic 500.
func RespondErr(ctx *gin.Context, err error) {
	var (
		httpErr *HTTPError
		verr    *ValidationError
		cverr   *content.ValidationError
	)

	switch {
	case errors.As(err, &httpErr):
		RespondError(ctx, httpErr.Status, httpErr.Message)
	case errors.As(err, &verr):
		RespondValidation(ctx, verr)
	case errors.As(err, &cverr):
		RespondValidation(ctx, fromContentValidation(cverr))
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "Email already in use")
	case errors.Is(err, content.ErrSlugTaken):
		RespondConflict(ctx, "Slug already in use")
	case errors.Is(err, content.ErrNotDeleted):
		RespondConflict(ctx, "Only deleted records can be purged")
	case errors.Is(err, content.ErrNotFound):
		RespondNotFound(ctx, "Not found")
	case errors.Is(err, media.ErrNotFound):
		RespondNotFound(ctx, "Media not found")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
			"err", err,
			"path", ctx.Request.URL.Path,
		)
		RespondInternal(ctx)
	}
}
