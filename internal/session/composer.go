package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// MaxFileSize is the attachment size cap, enforced before upload.
const MaxFileSize = 10 << 20 // 10 MiB

var (
	ErrNothingToSend  = errors.New("nothing to send")
	ErrNoPeerSelected = errors.New("no peer selected")
	ErrFileTooLarge   = errors.New("file exceeds 10 MiB limit")
)

// Uploader is the external upload collaborator.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// Transport is the outbound half of the realtime channel.
type Transport interface {
	State() State
	Send(v any) error
}

// StagedFile is a user-selected attachment held client-side between
// selection and send or cancel.
type StagedFile struct {
	Name string
	MIME string
	Data []byte
}

// Composer stages at most one attachment and coordinates upload with
// message dispatch: the chat frame is only handed to the transport
// after the upload has resolved, and an upload failure aborts the
// whole send.
type Composer struct {
	uploader  Uploader
	transport Transport

	mu      sync.Mutex
	staged  *StagedFile
	preview string
	gen     int
}

// NewComposer builds a Composer over an uploader and a transport.
func NewComposer(uploader Uploader, transport Transport) *Composer {
	return &Composer{uploader: uploader, transport: transport}
}

// StageFile holds a file for the next send. Files over MaxFileSize are
// rejected and nothing is staged. For image MIME types a local preview
// is derived asynchronously; no network call is involved.
func (c *Composer) StageFile(f StagedFile) error {
	if int64(len(f.Data)) > MaxFileSize {
		return ErrFileTooLarge
	}

	c.mu.Lock()
	c.staged = &f
	c.preview = ""
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if strings.HasPrefix(f.MIME, "image/") {
		go c.derivePreview(f, gen)
	}
	return nil
}

// derivePreview encodes the image as a data URI. The generation guard
// keeps a slow derivation from resurrecting a preview after the staged
// file was cancelled or replaced.
func (c *Composer) derivePreview(f StagedFile, gen int) {
	uri := fmt.Sprintf("data:%s;base64,%s", f.MIME, base64.StdEncoding.EncodeToString(f.Data))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.preview = uri
}

// CancelStaged clears the staged file and preview unconditionally.
func (c *Composer) CancelStaged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = nil
	c.preview = ""
	c.gen++
}

// Staged returns the currently staged file, if any.
func (c *Composer) Staged() (StagedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged == nil {
		return StagedFile{}, false
	}
	return *c.staged, true
}

// Preview returns the derived image preview, if one is ready.
func (c *Composer) Preview() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview, c.preview != ""
}

// SendComposed sends text plus the staged attachment to one peer. If a
// file is staged it is uploaded first; only after the upload resolves
// is the chat frame handed to the transport. Upload failure aborts the
// send with no text-only fallback. The staged file is cleared only on
// success.
func (c *Composer) SendComposed(ctx context.Context, peerID, text string) error {
	text = strings.TrimSpace(text)
	if peerID == "" {
		return ErrNoPeerSelected
	}

	c.mu.Lock()
	staged := c.staged
	c.mu.Unlock()

	if text == "" && staged == nil {
		return ErrNothingToSend
	}
	// Checked before the upload so a dead connection costs nothing.
	if c.transport.State() != StateConnected {
		return ErrNotConnected
	}

	env := models.ChatSend{ReceiverID: peerID, Body: text}
	if staged != nil {
		url, err := c.uploader.Upload(ctx, staged.Name, bytes.NewReader(staged.Data))
		if err != nil {
			return err
		}
		observability.IncClientUpload()
		env.FileURL = url
		env.FileType = staged.MIME
		env.FileName = staged.Name
		if env.Body == "" {
			env.Body = "[File: " + staged.Name + "]"
		}
	}

	if err := c.transport.Send(env); err != nil {
		return err
	}

	c.CancelStaged()
	return nil
}
