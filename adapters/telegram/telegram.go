// Package telegram relays binary payloads to the Telegram Bot API, which the
// service uses purely as free blob storage. One sendDocument call stores one
// payload; getFile resolves a download URL for a stored reference.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/upload"
)

const defaultBaseURL = "https://api.telegram.org"

// Config holds the Bot API connection settings.
type Config struct {
	Token   string
	ChatID  string
	BaseURL string
	Timeout time.Duration
	// RatePerSecond bounds outgoing API calls; the Bot API allows roughly
	// 30 messages per second per bot.
	RatePerSecond float64
}

// Client is the Bot API storage backend. It implements upload.Storage.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *log.Log
}

// Option configures the Client.
type Option func(*Client)

// WithLogger attaches a logger for request-level diagnostics.
func WithLogger(l *log.Log) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a Bot API client with a circuit breaker and rate limiter.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 25
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "telegram-storage",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the Bot API envelope. On failure, description carries the
// human-readable message surfaced to callers.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

type document struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

type message struct {
	MessageID int64     `json:"message_id"`
	Document  *document `json:"document"`
	Photo     []struct {
		FileID string `json:"file_id"`
	} `json:"photo"`
}

type fileInfo struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// Put stores one payload via sendDocument and returns its reference. The
// multipart body is streamed through a counting writer so onProgress sees
// cumulative payload bytes as they go out.
func (c *Client) Put(ctx context.Context, item upload.Item, onProgress func(sent int64)) (*upload.StoredObject, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fault.NewTransient("rate-limit-wait", "rate limiter interrupted").WithCause(err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeDocumentForm(mw, c.cfg.ChatID, item, onProgress)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	out, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), pr)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return c.call(req)
	})
	if err != nil {
		// The body may never have been read (open breaker, bad request
		// construction); release the writer goroutine.
		_ = pr.CloseWithError(err)
		return nil, classify(err)
	}

	var msg message
	if err := json.Unmarshal(out.(json.RawMessage), &msg); err != nil {
		return nil, fault.NewTerminal("storage-decode", "storage returned an unreadable payload").WithCause(err)
	}
	if msg.Document == nil {
		return nil, fault.NewTerminal("storage-no-reference", "storage did not return a file reference")
	}

	url, err := c.resolveURL(ctx, msg.Document.FileID)
	if err != nil {
		// The blob is stored; the locator can be re-resolved later.
		url = ""
	}

	if c.log != nil {
		c.log.Debug("stored payload",
			log.String("name", item.Name),
			log.String("file_ref", msg.Document.FileID),
			log.Int64("size", item.Size()))
	}

	return &upload.StoredObject{FileRef: msg.Document.FileID, URL: url}, nil
}

// ResolveURL returns a fresh download locator for a stored reference.
func (c *Client) ResolveURL(ctx context.Context, fileRef string) (string, error) {
	return c.resolveURL(ctx, fileRef)
}

func (c *Client) resolveURL(ctx context.Context, fileRef string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fault.NewTransient("rate-limit-wait", "rate limiter interrupted").WithCause(err)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		url := fmt.Sprintf("%s?file_id=%s", c.methodURL("getFile"), fileRef)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		return c.call(req)
	})
	if err != nil {
		return "", classify(err)
	}

	var info fileInfo
	if err := json.Unmarshal(out.(json.RawMessage), &info); err != nil {
		return "", fault.NewTerminal("storage-decode", "storage returned an unreadable payload").WithCause(err)
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, info.FilePath), nil
}

// call executes one API request and unwraps the Bot API envelope.
func (c *Client) call(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fault.NewTransient("storage-unreachable", "storage request failed").WithCause(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.NewTransient("storage-read", "failed reading storage response").WithCause(err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fault.NewTerminal("storage-decode", "storage returned an unreadable payload").WithCause(err)
	}
	if !envelope.OK {
		msg := envelope.Description
		if msg == "" {
			msg = "upload failed"
		}
		if envelope.ErrorCode == http.StatusTooManyRequests || envelope.ErrorCode >= 500 {
			return nil, fault.NewTransient("storage-rejected", msg).WithField("error_code", envelope.ErrorCode)
		}
		return nil, fault.NewTerminal("storage-rejected", msg).WithField("error_code", envelope.ErrorCode)
	}
	return envelope.Result, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, method)
}

// classify keeps fault classification across the breaker boundary; an open
// breaker is transient by nature.
func classify(err error) error {
	if _, ok := err.(fault.Fault); ok {
		return err
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fault.NewTransient("storage-breaker-open", "storage temporarily unavailable").WithCause(err)
	}
	return fault.NewTransient("storage-request", "storage request failed").WithCause(err)
}
