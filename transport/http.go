package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/michaelhil/open-neon-go/errors"
)

// HTTP is the default Transport: net/http for request/response,
// gorilla/websocket for push channels.
type HTTP struct {
	client *http.Client
	dialer Dialer
	logger *slog.Logger
}

// HTTPOption configures the default transport.
type HTTPOption func(*HTTP)

// WithClient replaces the underlying http.Client.
func WithClient(client *http.Client) HTTPOption {
	return func(t *HTTP) { t.client = client }
}

// WithLogger sets the transport logger; nil means slog.Default().
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(t *HTTP) { t.logger = logger }
}

// NewHTTP creates the default transport. Per-call deadlines come from
// the caller's context, so the client itself carries no global timeout.
func NewHTTP(opts ...HTTPOption) *HTTP {
	t := &HTTP{
		client: &http.Client{},
		dialer: newWebsocketDialer(5 * time.Second),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Get implements Transport.
func (t *HTTP) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.API(errors.CodeAPIError, "build request", 0, url, err)
	}
	return t.do(req)
}

// Post implements Transport.
func (t *HTTP) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.API(errors.CodeAPIError, "build request", 0, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req)
}

func (t *HTTP) do(req *http.Request) ([]byte, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.API(errors.CodeAPIError, "request failed", 0,
			req.URL.String(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.API(errors.CodeInvalidResponse, "read response body",
			resp.StatusCode, req.URL.String(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := errors.CodeAPIError
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			code = errors.CodeUnauthorized
		case http.StatusTooManyRequests:
			code = errors.CodeRateLimited
		}
		t.logger.Debug("device API returned error status",
			"url", req.URL.String(), "status", resp.StatusCode)
		return nil, errors.API(code,
			fmt.Sprintf("device returned HTTP %d", resp.StatusCode),
			resp.StatusCode, req.URL.String(), nil)
	}

	return data, nil
}

// OpenChannel implements Transport.
func (t *HTTP) OpenChannel(ctx context.Context, url string) (Channel, error) {
	return t.dialer.Dial(ctx, url)
}
