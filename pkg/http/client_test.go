package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestSendAndParseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("User-Agent") != userAgent {
			t.Errorf("headers = %v", r.Header)
		}
		if r.URL.Query().Get("symbols") != "AAPL" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"symbol":"AAPL"}` {
			t.Errorf("body = %s", b)
		}
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second))
	var res struct {
		Accepted bool `json:"accepted"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodPost,
		URL:         srv.URL,
		QueryParams: url.Values{"symbols": {"AAPL"}},
		Body:        map[string]string{"symbol": "AAPL"},
	}, &res)
	if err != nil || !res.Accepted {
		t.Fatalf("SendAndParse = %+v, %v", res, err)
	}
}

func TestSendAndParseErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Repeat("x", 2*maxErrorBody)))
			return
		}
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/bad"}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
	if len(se.Body) != maxErrorBody {
		t.Fatalf("error body should be capped, got %d bytes", len(se.Body))
	}

	var dest map[string]any
	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &dest)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}
