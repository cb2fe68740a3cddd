package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	authsvc "rentwheels/internal/app/services/auth"
	"rentwheels/internal/domain/access"
	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/validation"
	domainuser "rentwheels/internal/domain/user"
	"rentwheels/internal/infra/security"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type conflictDetail struct {
	Reason    availability.Reason `json:"reason"`
	Conflicts []conflictRange     `json:"conflicts,omitempty"`
}

type conflictRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string, problems ...string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message, Errors: problems})
}

// badRequest reports a body or query that could not be decoded.
func badRequest(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, "invalid request", err.Error())
}

// writeError maps an application error to its HTTP status. Unknown errors are
// logged and hidden behind a generic message.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	err = availability.FromStoreError(err)
	var invalid *validation.Error
	var conflict *availability.ConflictError
	switch {
	case errors.As(err, &invalid):
		fail(c, http.StatusBadRequest, "validation failed", invalid.Problems...)
	case isBadInput(err):
		fail(c, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, access.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, access.ErrForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domaincars.ErrNotFound),
		errors.Is(err, domaincars.ErrWindowNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		c.AbortWithStatusJSON(http.StatusConflict, envelope{
			Success: false,
			Message: conflict.Reason.Message(),
			Data:    mapConflict(conflict),
			Errors:  []string{string(conflict.Reason)},
		})
	case errors.Is(err, domainbooking.ErrAlreadyRated),
		errors.Is(err, domainbooking.ErrConcurrentUpdate),
		errors.Is(err, domaincars.ErrConcurrentUpdate),
		errors.Is(err, domainuser.ErrEmailAlreadyUsed):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, domainbooking.ErrInvalidStateTransition):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"error", err,
			)
		}
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func isBadInput(err error) bool {
	for _, target := range []error{
		authsvc.ErrPasswordTooShort,
		security.ErrPasswordTooLong,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
		domaincars.ErrInvalidStatus,
		domaincars.ErrInvalidWindow,
		domaincars.ErrInvalidRating,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func mapConflict(err *availability.ConflictError) conflictDetail {
	out := conflictDetail{Reason: err.Reason}
	for _, r := range err.Conflicts {
		out.Conflicts = append(out.Conflicts, conflictRange{
			Start: r.Start.Format(timestampLayout),
			End:   r.End.Format(timestampLayout),
		})
	}
	return out
}
