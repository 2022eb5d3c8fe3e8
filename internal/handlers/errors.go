package handlers

import (
	"errors"
	"net/http"

	dom "qrstudio/internal/domain"
	"qrstudio/internal/logging"
	"qrstudio/internal/payload"
	"qrstudio/internal/service"
	"qrstudio/internal/upload"
	"qrstudio/internal/utils"

	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

const (
	msgUnavailable = "service temporarily unavailable, please try again later"
	msgCorrupt     = "this QR code has corrupted data and cannot be loaded; delete it and create a new one"
	msgInternal    = "internal error"
)

// respondError maps err to a status and a stable JSON body. Driver and
// library error text never reaches the client.
func respondError(c *gin.Context, log logging.Logger, err error) {
	ctx := c.Request.Context()

	var (
		ve *service.ValidationError
		fe *payload.FieldError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, gin.H{"error": fe.Error(), "field": fe.Field})
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, payload.ErrInvalidPayload), errors.Is(err, dom.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email or username already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, upload.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, upload.ErrNoFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
	case errors.Is(err, upload.ErrTooLarge), errors.Is(err, upload.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCorruptRecord):
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgCorrupt})
	case errors.Is(err, service.ErrRenderFailure):
		log.Error(ctx, "qr render failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code"})
	case utils.IsStoreUnavailable(err):
		log.Error(ctx, "store unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
	default:
		log.Error(ctx, "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}
