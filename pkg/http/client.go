package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost

	// maxErrorBody caps how much of a failed response is kept on StatusError.
	maxErrorBody = 4 << 10
	userAgent    = "alert-engine"
)

// RequestOptions describes one outbound call. Body is sent as-is when it is
// []byte or an io.Reader and JSON-encoded otherwise.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams url.Values
	Body        interface{}
}

// StatusError is returned by SendAndParse for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// DecodeError is returned when a 2xx body does not decode into dest.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode json: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Client issues JSON requests to the price data, token and notification services.
type Client struct {
	http *http.Client
}

type clientSettings struct {
	timeout        time.Duration
	connectTimeout time.Duration
	readTimeout    time.Duration
	transport      http.RoundTripper
}

// ClientOption tunes Client timeouts and transport.
type ClientOption func(*clientSettings)

// NewClient builds a client. Connect and read timeouts apply to a clone of
// the default transport unless WithTransport replaced it.
func NewClient(opts ...ClientOption) *Client {
	s := clientSettings{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&s)
	}

	rt := s.transport
	if rt == nil && (s.connectTimeout > 0 || s.readTimeout > 0) {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if s.connectTimeout > 0 {
			t.DialContext = (&net.Dialer{Timeout: s.connectTimeout, KeepAlive: 30 * time.Second}).DialContext
			t.TLSHandshakeTimeout = s.connectTimeout
		}
		if s.readTimeout > 0 {
			t.ResponseHeaderTimeout = s.readTimeout
		}
		rt = t
	}
	return &Client{http: &http.Client{Timeout: s.timeout, Transport: rt}}
}

// SendAndParse performs the request and decodes a 2xx JSON body into dest.
// A nil dest discards the body.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	req, err := newRequest(ctx, opts)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", opts.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func newRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	var body io.Reader
	switch v := opts.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(v)
	case io.Reader:
		body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if len(opts.QueryParams) > 0 {
		q := req.URL.Query()
		for k, vs := range opts.QueryParams {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("User-Agent", userAgent)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// WithTimeout bounds the whole exchange including reading the body.
func WithTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConnectTimeout bounds dialing and the TLS handshake.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) {
		s.connectTimeout = d
	}
}

// WithReadTimeout bounds the wait for response headers after the request is written.
func WithReadTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) {
		s.readTimeout = d
	}
}

// WithTransport replaces the round tripper, mainly for tests.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(s *clientSettings) {
		s.transport = rt
	}
}
