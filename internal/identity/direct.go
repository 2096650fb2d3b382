package identity

import "context"

// DirectRotator hands out the host's own connection. It never rotates.
type DirectRotator struct {
	opts options
}

// NewDirectRotator creates a direct rotator.
func NewDirectRotator(opts ...Option) *DirectRotator {
	return &DirectRotator{opts: newOptions(opts)}
}

// Acquire returns a directly dialing identity.
func (r *DirectRotator) Acquire(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newHandle("direct", newHTTPClient(nil, r.opts.timeout), nil), nil
}
