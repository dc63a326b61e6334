package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/timeforge/pkg/logger"
)

type options struct {
	cost  int
	ttl   time.Duration
	now   func() time.Time
	newID func() string
	log   logger.Logger
}

// Option configures the identity Service.
type Option func(*options)

// WithBcryptCost sets the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.cost = cost }
}

// WithTokenTTL sets the session token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source for tokens and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides user id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithLogger sets the identity logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{cost: bcrypt.DefaultCost, ttl: 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("identity")
	}
	return o
}
