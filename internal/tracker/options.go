package tracker

import (
	"time"

	"github.com/mesh-intelligence/todos/internal/persist"
)

// Option configures the stores built by this package.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the generator used for new task and category
// IDs.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   defaultNow,
		newID: persist.GenerateID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// defaultNow truncates to milliseconds so timestamps survive a JSON round
// trip unchanged.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
