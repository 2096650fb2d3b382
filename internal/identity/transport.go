package identity

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects bounds redirect chains followed by identity clients.
const maxRedirects = 10

// newHTTPClient returns an HTTP client whose connections are made by
// dialer. A nil dialer dials directly.
func newHTTPClient(dialer proxy.Dialer, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		// Every connection goes through the identity; the process
		// environment's proxy settings must not bypass it.
		Proxy: nil,
		// Proxied connections are a limited resource, keep the pool small.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
	}

	if dialer != nil {
		transport.DialContext = dialContextFunc(dialer)
	} else {
		d := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		transport.DialContext = d.DialContext
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// dialContextFunc adapts a proxy.Dialer to http.Transport.DialContext.
// Dialers without context support are dialed in a goroutine so that
// cancellation is still observed; the abandoned attempt finishes on its own.
func dialContextFunc(dialer proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := dialer.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			go func() {
				if r := <-resultCh; r.conn != nil {
					_ = r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}
