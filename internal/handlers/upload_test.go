package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRouter(t *testing.T, dir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h, err := NewUploadHandler(dir, zerolog.Nop())
	require.NoError(t, err)

	router := gin.New()
	router.POST("/upload", h.Upload)
	return router
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadStoresFile(t *testing.T) {
	dir := t.TempDir()
	router := uploadRouter(t, dir)

	body, contentType := multipartBody(t, "file", "cat.png", "pngdata")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		FileURL string `json:"file_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.FileURL, "/uploads/"))
	assert.Equal(t, ".png", filepath.Ext(resp.FileURL))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(resp.FileURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(stored))
}

func TestUploadSanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	router := uploadRouter(t, dir)

	body, contentType := multipartBody(t, "file", "../../etc/passwd", "nope")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Everything lands inside the upload dir under a generated name.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "..")
}

func TestUploadMissingFile(t *testing.T) {
	router := uploadRouter(t, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
