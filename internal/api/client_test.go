package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"u1","name":"Alice","email":"alice@example.com"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
}

func TestListUsersServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"db down"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ListUsers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDirectoryFetchFailed)
	assert.Contains(t, err.Error(), "db down")
}

func TestGetHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/u2", r.URL.Path)
		w.Write([]byte(`[{"id":"m1","sender_id":"u2","receiver_id":"u1","message":"hi"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	msgs, err := c.GetHistory(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
}

func TestGetHistoryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.GetHistory(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrHistoryFetchFailed)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "cat.png", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "pngdata", string(data))

		w.Write([]byte(`{"file_url":"/uploads/abc.png"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	url, err := c.Upload(context.Background(), "cat.png", strings.NewReader("pngdata"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc.png", url)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(`{"error":"file exceeds 10 MiB limit"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.Upload(context.Background(), "big.bin", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Contains(t, err.Error(), "10 MiB")
}

func TestUploadConnectionRefused(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "tok")
	_, err := c.Upload(context.Background(), "cat.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUploadFailed)
}
