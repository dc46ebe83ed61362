package upload

import (
	"time"

	"github.com/imgvault/imgvault/adapters/log"
)

const (
	defaultConcurrency      = 3
	defaultRetries          = 3
	defaultBaseDelay        = 500 * time.Millisecond
	defaultThrottleInterval = 100 * time.Millisecond
)

// Batcher orchestrates batch uploads against a Storage backend.
type Batcher struct {
	storage          Storage
	rule             *FileRule
	concurrency      int
	retries          int
	baseDelay        time.Duration
	throttleInterval time.Duration
	log              *log.Log
}

// Option is a function type for configuring the Batcher.
type Option func(*Batcher)

// NewBatcher creates a Batcher with the provided options.
func NewBatcher(storage Storage, options ...Option) *Batcher {
	b := &Batcher{
		storage:          storage,
		rule:             ImageRule(),
		concurrency:      defaultConcurrency,
		retries:          defaultRetries,
		baseDelay:        defaultBaseDelay,
		throttleInterval: defaultThrottleInterval,
	}
	for _, option := range options {
		option(b)
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	if b.retries < 1 {
		b.retries = 1
	}
	return b
}

// WithConcurrency sets the maximum number of items uploading at once.
func WithConcurrency(concurrency int) Option {
	return func(b *Batcher) {
		b.concurrency = concurrency
	}
}

// WithRetries sets the total number of attempts per item.
func WithRetries(retries int) Option {
	return func(b *Batcher) {
		b.retries = retries
	}
}

// WithBaseDelay sets the backoff unit; the wait before attempt n+1 is
// baseDelay*(n+1).
func WithBaseDelay(d time.Duration) Option {
	return func(b *Batcher) {
		b.baseDelay = d
	}
}

// WithThrottleInterval sets the minimum interval between progress callbacks.
func WithThrottleInterval(d time.Duration) Option {
	return func(b *Batcher) {
		b.throttleInterval = d
	}
}

// WithRule overrides the pre-flight validation rule.
func WithRule(rule *FileRule) Option {
	return func(b *Batcher) {
		b.rule = rule
	}
}

// WithLogger enables batch-level logging.
func WithLogger(l *log.Log) Option {
	return func(b *Batcher) {
		b.log = l
	}
}
