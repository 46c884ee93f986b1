package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultConnectTimeout bounds connection establishment separately
	// from the full transfer.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "Updraft/1.0"
)

// StreamOpener turns a manifest source locator into a byte stream. The
// engine reads the stream once, front to back.
type StreamOpener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// HTTPOpener fetches sources over HTTP(S). Local paths (no URL scheme)
// fall through to the filesystem, so one opener serves mixed manifests.
type HTTPOpener struct {
	client    *http.Client
	userAgent string
}

// NewHTTPOpener creates the default opener.
func NewHTTPOpener() *HTTPOpener {
	return &HTTPOpener{
		client: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: DefaultConnectTimeout}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
	}
}

func (o *HTTPOpener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.Contains(source, "://") {
		return openLocal(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// FileOpener serves sources from a local directory, for mirrors synced
// to disk and for tests.
type FileOpener struct {
	Root string
}

func (o *FileOpener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := source
	if o.Root != "" {
		path = o.Root + "/" + strings.TrimPrefix(source, "/")
	}
	return openLocal(path)
}

func openLocal(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return f, nil
}
