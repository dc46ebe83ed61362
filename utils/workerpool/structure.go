package workerpool

import (
	"github.com/imgvault/imgvault/adapters/log"
)

const defaultLimit = 4

type settings struct {
	limit int
	log   *log.Log
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		limit: defaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limit < 1 {
		s.limit = 1
	}
	return s
}

// Option is a function type for configuring a Run call.
type Option func(*settings)

// WithLimit sets the maximum number of tasks in flight.
func WithLimit(limit int) Option {
	return func(s *settings) {
		s.limit = limit
	}
}

// WithLogger enables per-task debug logging.
func WithLogger(l *log.Log) Option {
	return func(s *settings) {
		s.log = l
	}
}
