package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Custom"); got != "yes" {
			t.Errorf("X-Custom header = %q, want yes", got)
		}

		if got := r.URL.Query().Get("token"); got != "secret" {
			t.Errorf("token query param = %q, want secret", got)
		}

		w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	rt := New(testLogger(), Config{PluginName: "test"})

	resp := rt.Fetch(context.Background(), srv.URL, FetchOptions{
		Headers: map[string]string{"X-Custom": "yes"},
		Query:   map[string]string{"token": "secret"},
	})

	if !resp.OK() {
		t.Fatalf("OK() = false, status %d", resp.StatusCode)
	}

	if got := resp.JSON().Get("value").Int(); got != 42 {
		t.Errorf("JSON value = %d, want 42", got)
	}

	if msg := resp.ErrMsg(); msg != "" {
		t.Errorf("ErrMsg() = %q, want empty", msg)
	}
}

func TestFetchUpstreamErrorStatusPassesThrough(t *testing.T) {
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"forbidden"}`))
	}))
	defer srv.Close()

	rt := New(testLogger(), Config{PluginName: "test"})

	resp := rt.Fetch(context.Background(), srv.URL, FetchOptions{Retry: true})

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", resp.StatusCode)
	}

	// HTTP error statuses are upstream answers, not transport failures.
	if calls != 1 {
		t.Errorf("upstream called %d times, want 1 (no retry on error status)", calls)
	}

	if msg := resp.ErrMsg(); msg != "" {
		t.Errorf("ErrMsg() = %q, want empty for upstream response", msg)
	}
}

type failingTransport struct {
	attempts int
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.attempts++

	return nil, errors.New("connection refused")
}

func TestFetchRetriesTransportFailures(t *testing.T) {
	transport := &failingTransport{}

	rt := New(testLogger(), Config{
		PluginName: "test",
		HTTPClient: &http.Client{Transport: transport},
	})

	resp := rt.Fetch(context.Background(), "http://upstream.invalid/data", FetchOptions{Retry: true})

	if transport.attempts != maxFetchRetries+1 {
		t.Errorf("attempts = %d, want %d", transport.attempts, maxFetchRetries+1)
	}

	if resp.OK() {
		t.Error("OK() = true, want false after exhausted retries")
	}

	if msg := resp.ErrMsg(); msg == "" {
		t.Error("ErrMsg() empty, want structured error message")
	}

	if s := resp.JSON().Get("s").String(); s != "error" {
		t.Errorf(`payload "s" = %q, want "error"`, s)
	}
}

func TestFetchNoRetryByDefault(t *testing.T) {
	transport := &failingTransport{}

	rt := New(testLogger(), Config{
		PluginName: "test",
		HTTPClient: &http.Client{Transport: transport},
	})

	rt.Fetch(context.Background(), "http://upstream.invalid/data", FetchOptions{})

	if transport.attempts != 1 {
		t.Errorf("attempts = %d, want 1", transport.attempts)
	}
}
