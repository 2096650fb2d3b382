package identity

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// downCommandTimeout bounds the down command. It runs detached from the
// caller's context so that a cancelled run still tears the tunnel down.
const downCommandTimeout = time.Minute

// CommandRotator drives an external tunnel, such as a WireGuard interface,
// with an up and a down command. Traffic uses the operating system route,
// so the HTTP client itself dials directly.
//
// The tunnel is host-wide, so at most one identity is held at a time:
// Acquire blocks until the previous identity is released.
type CommandRotator struct {
	opts   options
	up     []string
	down   []string
	settle time.Duration
	held   chan struct{}
}

// NewCommandRotator creates a command rotator. up and down are argv lists,
// e.g. ["wg-quick", "up", "wg0"].
func NewCommandRotator(up, down []string, settle time.Duration, opts ...Option) (*CommandRotator, error) {
	if len(up) == 0 || len(down) == 0 {
		return nil, fmt.Errorf("%w: up and down commands are required", ErrAcquire)
	}
	return &CommandRotator{
		opts:   newOptions(opts),
		up:     up,
		down:   down,
		settle: settle,
		held:   make(chan struct{}, 1),
	}, nil
}

// Acquire waits for the tunnel to be free, runs the up command and waits
// for the tunnel to settle.
func (r *CommandRotator) Acquire(ctx context.Context) (Identity, error) {
	select {
	case r.held <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := runCommand(ctx, r.up); err != nil {
		<-r.held
		return nil, err
	}

	name := strings.Join(r.up, " ")
	r.opts.logger.Info("tunnel up", "command", name)

	if r.settle > 0 {
		timer := time.NewTimer(r.settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			r.release() //nolint:errcheck // Logged by runDown
			return nil, ctx.Err()
		}
	}

	return newHandle(name, newHTTPClient(nil, r.opts.timeout), r.release), nil
}

// release brings the tunnel down and frees it for the next Acquire.
func (r *CommandRotator) release() error {
	defer func() { <-r.held }()
	return r.runDown()
}

func (r *CommandRotator) runDown() error {
	ctx, cancel := context.WithTimeout(context.Background(), downCommandTimeout)
	defer cancel()

	if err := runCommand(ctx, r.down); err != nil {
		r.opts.logger.Error("tunnel down failed", "command", strings.Join(r.down, " "), "error", err)
		return err
	}
	r.opts.logger.Info("tunnel down", "command", strings.Join(r.down, " "))
	return nil
}

func runCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // Commands come from the operator's config
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
