// Package uploader pushes local photos to the detailflow presign endpoint and tracks
// each file's progress independently, the way the public intake page does.
package uploader

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	storagedomain "github.com/smallbiznis/detailflow/internal/storage/domain"
	"go.uber.org/zap"
)

const (
	MaxFileBytes     = 10 << 20
	DefaultMaxPhotos = 10
)

type Status string

const (
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

var (
	ErrUnknownPhoto  = errors.New("unknown_photo")
	ErrNotRetryable  = errors.New("photo_not_retryable")
	ErrMissingConfig = errors.New("uploader base url and org slug are required")
)

// File is one local selection. Release, when set, is called once the photo is removed.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Release     func()
}

// Photo is a read-only snapshot of one tracked upload.
type Photo struct {
	ID          string
	Name        string
	ContentType string
	Status      Status
	Key         string
	PublicURL   string
	Err         error
}

type entry struct {
	photo Photo
	file  File
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxPhotos caps how many photos may be tracked at once. Zero means unbounded.
func WithMaxPhotos(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxPhotos = n
		}
	}
}

func WithMinPhotos(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.minPhotos = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

type Client struct {
	baseURL   string
	orgSlug   string
	http      *http.Client
	log       *zap.Logger
	maxPhotos int
	minPhotos int

	mu         sync.Mutex
	entries    []*entry
	onChange   []func([]string)
	dirty      bool
	delivering bool
	inflight   sync.WaitGroup
}

func New(baseURL, orgSlug string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	orgSlug = strings.ToLower(strings.TrimSpace(orgSlug))
	if baseURL == "" || orgSlug == "" {
		return nil, ErrMissingConfig
	}

	c := &Client{
		baseURL:   baseURL,
		orgSlug:   orgSlug,
		http:      &http.Client{Timeout: 60 * time.Second},
		log:       zap.NewNop(),
		maxPhotos: DefaultMaxPhotos,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("uploader")
	return c, nil
}

// OnChange registers fn to receive the done-key list after every state change.
func (c *Client) OnChange(fn func(keys []string)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Add starts uploading every acceptable file and returns the IDs it accepted.
// Unsupported or oversized files, and files past the photo cap, are dropped silently.
func (c *Client) Add(ctx context.Context, files ...File) []string {
	accepted := make([]*entry, 0, len(files))

	c.mu.Lock()
	for _, f := range files {
		if c.maxPhotos > 0 && len(c.entries) >= c.maxPhotos {
			break
		}
		f.ContentType = contentTypeOf(f)
		if !storagedomain.IsAllowedContentType(f.ContentType) || len(f.Data) == 0 || len(f.Data) > MaxFileBytes {
			c.log.Debug("file skipped", zap.String("name", f.Name), zap.String("content_type", f.ContentType), zap.Int("bytes", len(f.Data)))
			continue
		}
		e := &entry{
			photo: Photo{
				ID:          ulid.Make().String(),
				Name:        f.Name,
				ContentType: f.ContentType,
				Status:      StatusUploading,
			},
			file: f,
		}
		c.entries = append(c.entries, e)
		accepted = append(accepted, e)
	}
	c.mu.Unlock()

	if len(accepted) == 0 {
		return nil
	}
	c.notify()

	ids := make([]string, 0, len(accepted))
	for _, e := range accepted {
		ids = append(ids, e.photo.ID)
		c.start(ctx, e.photo.ID, e.file)
	}
	return ids
}

// Retry re-enters the upload flow for a photo that previously failed.
func (c *Client) Retry(ctx context.Context, id string) error {
	c.mu.Lock()
	e := c.find(id)
	if e == nil {
		c.mu.Unlock()
		return ErrUnknownPhoto
	}
	if e.photo.Status != StatusError {
		c.mu.Unlock()
		return ErrNotRetryable
	}
	e.photo.Status = StatusUploading
	e.photo.Err = nil
	file := e.file
	c.mu.Unlock()

	c.notify()
	c.start(ctx, id, file)
	return nil
}

// Remove drops a photo in any state. A pending upload keeps running but its result is discarded.
func (c *Client) Remove(id string) bool {
	c.mu.Lock()
	idx := -1
	for i, e := range c.entries {
		if e.photo.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	release := c.entries[idx].file.Release
	c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	c.mu.Unlock()

	if release != nil {
		release()
	}
	c.notify()
	return true
}

func (c *Client) Photos() []Photo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Photo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.photo)
	}
	return out
}

// DoneKeys lists the object keys of finished uploads in selection order.
func (c *Client) DoneKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneKeysLocked()
}

// Wait blocks until no upload is in flight.
func (c *Client) Wait() {
	c.inflight.Wait()
}

// BelowMinimum reports whether fewer photos than the configured minimum have finished.
// It is advisory; submission is still allowed.
func (c *Client) BelowMinimum() bool {
	return len(c.DoneKeys()) < c.minPhotos
}

func (c *Client) start(ctx context.Context, id string, file File) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		key, publicURL, err := c.upload(ctx, file)
		c.finish(id, key, publicURL, err)
	}()
}

func (c *Client) finish(id, key, publicURL string, err error) {
	c.mu.Lock()
	e := c.find(id)
	if e == nil {
		c.mu.Unlock()
		c.log.Debug("result ignored for removed photo", zap.String("photo_id", id))
		return
	}
	if err != nil {
		e.photo.Status = StatusError
		e.photo.Err = err
	} else {
		e.photo.Status = StatusDone
		e.photo.Key = key
		e.photo.PublicURL = publicURL
	}
	name := e.file.Name
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("upload failed", zap.String("photo_id", id), zap.String("name", name), zap.Error(err))
	}
	c.notify()
}

// notify delivers done-key snapshots one at a time. A change made while listeners run
// is picked up by the goroutine already delivering, so the last call always carries the
// current list.
func (c *Client) notify() {
	c.mu.Lock()
	c.dirty = true
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for c.dirty {
		c.dirty = false
		keys := c.doneKeysLocked()
		listeners := append([]func([]string){}, c.onChange...)
		c.mu.Unlock()

		for _, fn := range listeners {
			fn(keys)
		}
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

func (c *Client) doneKeysLocked() []string {
	keys := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if e.photo.Status == StatusDone && e.photo.Key != "" {
			keys = append(keys, e.photo.Key)
		}
	}
	return keys
}

func (c *Client) find(id string) *entry {
	for _, e := range c.entries {
		if e.photo.ID == id {
			return e
		}
	}
	return nil
}

// contentTypeOf trusts a declared type and sniffs the bytes otherwise.
func contentTypeOf(f File) string {
	if ct := storagedomain.NormalizeContentType(f.ContentType); ct != "" {
		return ct
	}
	if len(f.Data) == 0 {
		return ""
	}
	return storagedomain.NormalizeContentType(mimetype.Detect(f.Data).String())
}
