package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

// MaxUploadSize caps attachment uploads at 10 MiB, matching the limit
// clients enforce before sending.
const MaxUploadSize = 10 << 20

// UploadHandler stores attachments on local disk and hands back the URL
// the message should carry.
type UploadHandler struct {
	dir    string
	logger zerolog.Logger
}

// NewUploadHandler builds an UploadHandler writing into dir, creating
// it if needed.
func NewUploadHandler(dir string, logger zerolog.Logger) (*UploadHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadHandler{dir: dir, logger: logger.With().Str("component", "upload").Logger()}, nil
}

// Upload accepts one multipart file under the "file" field and returns
// {"file_url": ...}. Files over MaxUploadSize are rejected.
func (h *UploadHandler) Upload(c *gin.Context) {
	ctx, span := otel.Tracer("chat-devserver/upload").Start(c.Request.Context(), "upload.store")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if header.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10 MiB limit"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer src.Close()

	// The stored name never comes from the client; only the extension
	// survives, which keeps traversal attempts out of the path.
	name := uuid.NewString() + filepath.Ext(filepath.Base(header.Filename))
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create upload file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		h.logger.Error().Err(err).Msg("failed to write upload file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"file_url": "/uploads/" + name})
}
