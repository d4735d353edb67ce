package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetSendsUserAgentAndReturnsBody(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer server.Close()

	client := New(Config{UserAgent: "subarchive/test"})
	body, err := client.Get(context.Background(), server.URL+"/track")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(body) != `{"events":[]}` {
		t.Fatalf("unexpected body %q", body)
	}
	if gotAgent != "subarchive/test" {
		t.Fatalf("User-Agent = %q", gotAgent)
	}
}

func TestGetReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(Config{}).Get(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "slow down" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if !IsTransient(err) {
		t.Fatal("429 should be transient")
	}
}

func TestGetTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := New(Config{Timeout: 50 * time.Millisecond}).Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Fatalf("timeout should be transient: %v", err)
	}
}

func TestIsTransientNotFound(t *testing.T) {
	if IsTransient(&StatusError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}) {
		t.Fatal("404 should not be transient")
	}
	if IsTransient(nil) {
		t.Fatal("nil should not be transient")
	}
}

func TestJitterBounds(t *testing.T) {
	if Jitter(0) != 0 {
		t.Fatal("zero base should disable the delay")
	}
	base := 2 * time.Second
	for range 100 {
		d := Jitter(base)
		if d < base/2 || d >= base*3/2 {
			t.Fatalf("jitter %s outside [%s, %s)", d, base/2, base*3/2)
		}
	}
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
