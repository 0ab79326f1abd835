package offline

import (
	"context"
	"time"

	"github.com/Thiht/transactor"
	"github.com/google/uuid"

	"github.com/calygofire/calygo"
)

const defaultReplayTimeout = 10 * time.Second

// Config holds the Queue's collaborators and tuning. Use the With* options
// rather than filling it directly.
type Config struct {
	Logger            calygo.Logger
	Clock             Clock
	ReplayTimeout     time.Duration
	FailureClassifier FailureClassifier
	IDGenerator       func() string
	Transactor        transactor.Transactor
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = calygo.NopLogger{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.ReplayTimeout <= 0 {
		c.ReplayTimeout = defaultReplayTimeout
	}
	if c.FailureClassifier == nil {
		c.FailureClassifier = RetryAll
	}
	if c.IDGenerator == nil {
		c.IDGenerator = newID
	}
	if c.Transactor == nil {
		c.Transactor = nopTransactor{}
	}
	return c
}

// Option configures a Queue.
type Option func(*Config)

// WithLogger sets the queue logger.
func WithLogger(logger calygo.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithClock sets the clock used to timestamp enqueued requests.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithReplayTimeout bounds each individual replay attempt.
func WithReplayTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ReplayTimeout = timeout
	}
}

// WithFailureClassifier decides what happens to a request whose replay failed.
func WithFailureClassifier(classifier FailureClassifier) Option {
	return func(c *Config) {
		c.FailureClassifier = classifier
	}
}

// WithIDGenerator replaces the UUIDv7 request ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *Config) {
		c.IDGenerator = gen
	}
}

// WithTransactor runs each clear-then-reinsert rewrite inside one transaction.
func WithTransactor(tx transactor.Transactor) Option {
	return func(c *Config) {
		c.Transactor = tx
	}
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FailureAction defines how a request whose replay failed is handled.
type FailureAction int

const (
	// FailureRetry keeps the request queued for the next pass.
	FailureRetry FailureAction = iota
	// FailureDrop removes the request from the queue for good.
	FailureDrop
)

// FailureClassifier decides whether a failed replay is retried. status is
// zero when err is non-nil.
type FailureClassifier func(ctx context.Context, req calygo.PendingRequest, status int, err error) FailureAction

// RetryAll keeps every failed request queued, forever. This is the default.
func RetryAll(context.Context, calygo.PendingRequest, int, error) FailureAction {
	return FailureRetry
}

// DropClientErrors drops requests the server answered with a 4xx status,
// except 408 and 429 which are worth retrying.
func DropClientErrors(_ context.Context, _ calygo.PendingRequest, status int, err error) FailureAction {
	if err != nil {
		return FailureRetry
	}
	if status >= 400 && status < 500 && status != 408 && status != 429 {
		return FailureDrop
	}
	return FailureRetry
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type nopTransactor struct{}

func (nopTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
