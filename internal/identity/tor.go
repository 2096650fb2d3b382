package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
	"golang.org/x/net/proxy"

	"github.com/nao1215/reviewharvest/internal/config"
)

// torProcess is the part of tornago.TorProcess the rotator uses.
type torProcess interface {
	SocksAddr() string
	Stop() error
}

// torLauncher starts a Tor daemon and blocks until it has bootstrapped.
type torLauncher func(startupTimeout time.Duration) (torProcess, error)

// launchEmbeddedTor starts a tornago daemon on OS-assigned ports.
func launchEmbeddedTor(startupTimeout time.Duration) (torProcess, error) {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(startupTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}
	return process, nil
}

// TorRotator launches a fresh embedded Tor daemon for every identity.
// A new daemon builds new circuits, so each identity exits the Tor network
// from a different relay. Bootstrapping takes up to a few minutes.
type TorRotator struct {
	opts           options
	startupTimeout time.Duration
	launch         torLauncher
}

// NewTorRotator creates a Tor rotator. A non-positive startupTimeout uses
// the default.
func NewTorRotator(startupTimeout time.Duration, opts ...Option) *TorRotator {
	if startupTimeout <= 0 {
		startupTimeout = config.DefaultTorStartupTimeout
	}
	return &TorRotator{
		opts:           newOptions(opts),
		startupTimeout: startupTimeout,
		launch:         launchEmbeddedTor,
	}
}

// Acquire starts a daemon and returns an identity routed through its
// SOCKS5 port. Releasing the identity stops the daemon.
func (r *TorRotator) Acquire(ctx context.Context) (Identity, error) {
	r.opts.logger.Info("starting embedded Tor daemon", "startup_timeout", r.startupTimeout)
	started := time.Now()

	process, err := r.launch(r.startupTimeout)
	if err != nil {
		return nil, err
	}

	// StartTorDaemon does not take a context; honor cancellation after it returns.
	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck // Best effort cleanup
		return nil, err
	}

	socksAddr := process.SocksAddr()
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		_ = process.Stop() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	r.opts.logger.Info("embedded Tor daemon ready", "socks", socksAddr, "elapsed", time.Since(started).Round(time.Second))

	name := "tor://" + socksAddr
	return newHandle(name, newHTTPClient(dialer, r.opts.timeout), func() error {
		r.opts.logger.Info("stopping embedded Tor daemon", "socks", socksAddr)
		return process.Stop()
	}), nil
}
