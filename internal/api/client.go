// Package api implements the HTTP collaborators of a chat session: the
// peer directory, the per-peer message history, and the file upload
// endpoint. All calls are authenticated with a bearer token.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var (
	ErrDirectoryFetchFailed = errors.New("directory fetch failed")
	ErrHistoryFetchFailed   = errors.New("history fetch failed")
	ErrUploadFailed         = errors.New("upload failed")
)

// Client is a REST client for the chat backend.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a Client for the given base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// User is a directory entry.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HistoryMessage mirrors the server's message envelope.
type HistoryMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"message"`
	FileURL    string    `json:"file_url,omitempty"`
	FileType   string    `json:"file_type,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// UploadResponse is the response from the upload endpoint.
type UploadResponse struct {
	FileURL string `json:"file_url"`
}

// ListUsers fetches the full peer directory. The caller excludes its
// own entry.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/users", "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryFetchFailed, err)
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryFetchFailed, err)
	}
	return users, nil
}

// GetHistory fetches the ordered message history with one peer.
func (c *Client) GetHistory(ctx context.Context, peerID string) ([]HistoryMessage, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/messages/"+peerID, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryFetchFailed, err)
	}

	var msgs []HistoryMessage
	if err := json.Unmarshal(body, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryFetchFailed, err)
	}
	return msgs, nil
}

// Upload sends a file as a multipart body and returns its public URL.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	var resp UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return resp.FileURL, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, errResp.Error)
	}
	return respBody, nil
}
