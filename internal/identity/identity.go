package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nao1215/reviewharvest/internal/config"
)

// Identity is one acquired egress route.
type Identity interface {
	// Name describes the identity for logs and reports.
	Name() string

	// HTTPClient returns a client whose traffic leaves through this identity.
	HTTPClient() *http.Client

	// Release tears the identity down. Calls after the first are no-ops.
	Release() error
}

// Rotator hands out identities. Each Acquire returns a new identity.
type Rotator interface {
	Acquire(ctx context.Context) (Identity, error)
}

// Use acquires an identity from r, calls fn with it and releases it.
// The release happens exactly once on every path out of fn, including a
// returned error, cancellation of ctx and a panic. A release failure is
// joined to fn's error.
func Use(ctx context.Context, r Rotator, fn func(Identity) error) (err error) {
	id, err := r.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	defer func() {
		if rerr := id.Release(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %s: %w", ErrRelease, id.Name(), rerr))
		}
	}()
	return fn(id)
}

// handle is the Identity implementation shared by all rotators.
type handle struct {
	name    string
	client  *http.Client
	release func() error

	once sync.Once
	err  error
}

func newHandle(name string, client *http.Client, release func() error) *handle {
	return &handle{name: name, client: client, release: release}
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) HTTPClient() *http.Client {
	return h.client
}

func (h *handle) Release() error {
	h.once.Do(func() {
		if h.client != nil {
			h.client.CloseIdleConnections()
		}
		if h.release != nil {
			h.err = h.release()
		}
	})
	return h.err
}

// options holds settings shared by every rotator.
type options struct {
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a rotator.
type Option func(*options)

// WithTimeout sets the timeout of the HTTP clients handed out.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithLogger sets the logger used for acquire and release events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		timeout: config.DefaultSourceTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the rotator selected by cfg.Mode.
func New(cfg config.IdentityConfig, opts ...Option) (Rotator, error) {
	switch cfg.Mode {
	case config.IdentityModeTor:
		return NewTorRotator(cfg.TorStartupTimeout, opts...), nil
	case config.IdentityModeSOCKS:
		return NewSOCKSRotator(cfg.Proxies, opts...)
	case config.IdentityModeCommand:
		return NewCommandRotator(cfg.UpCommand, cfg.DownCommand, cfg.SettleDelay, opts...)
	case config.IdentityModeDirect, "":
		return NewDirectRotator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidIdentityMode, cfg.Mode)
	}
}
