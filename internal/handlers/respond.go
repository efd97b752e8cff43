package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/auc-api/internal/blob"
	"github.com/harentsoaR/auc-api/internal/models"
	"github.com/harentsoaR/auc-api/internal/services"
	"github.com/harentsoaR/auc-api/internal/store"
)

var errBadRequest = errors.New("bad request")

func (h *Handler) ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, models.NewSuccessResponse(message, data))
}

func (h *Handler) reject(c *gin.Context, status int, kind models.ErrorKind, message string) {
	c.JSON(status, models.NewErrorResponse(kind, message))
}

// fail maps an error from a store, blob or lock call to the envelope. Raw
// error detail goes to the log only.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, errBadRequest):
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, err.Error())
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "Password is too long.")
	case errors.Is(err, services.ErrInvalidAvatarName), errors.Is(err, blob.ErrInvalidKey):
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "Invalid file name.")
	case errors.Is(err, store.ErrDuplicateKey):
		h.reject(c, http.StatusConflict, models.KindConflict, "Document already exists.")
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, services.ErrLockTimeout):
		h.Log.Warn(ctx, op+": store unavailable", "error", err)
		h.reject(c, http.StatusServiceUnavailable, models.KindUnavailable, "Service temporarily unavailable.")
	default:
		h.Log.Error(ctx, op+" failed", "error", err)
		h.reject(c, http.StatusInternalServerError, models.KindInternal, "Internal server error.")
	}
}
