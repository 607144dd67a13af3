package httpq_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgame/boardlink/pkg/httpq"
)

func newEngine(t *testing.T, cfg httpq.Config) *httpq.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return httpq.New(ctx, cfg, slog.Default())
}

func TestSubmitDeliversExactlyOneCallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	t.Cleanup(server.Close)

	engine := newEngine(t, httpq.Config{})

	var calls atomic.Int32
	done := make(chan httpq.Result, 1)
	err := engine.Submit(http.MethodGet, server.URL, nil, nil, func(res httpq.Result) {
		calls.Add(1)
		done <- res
	})
	require.NoError(t, err)

	select {
	case res := <-done:
		assert.NoError(t, res.Err)
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, []byte("hello"), res.Body)
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueueFullRejectsSynchronously(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	engine := newEngine(t, httpq.Config{Workers: 1, QueueSize: 2})

	results := make(chan httpq.Result, 4)
	collect := func(res httpq.Result) { results <- res }

	// First job occupies the single worker.
	require.NoError(t, engine.Submit(http.MethodGet, server.URL, nil, nil, collect))
	<-started

	// Two more fill the queue.
	require.NoError(t, engine.Submit(http.MethodGet, server.URL, nil, nil, collect))
	require.NoError(t, engine.Submit(http.MethodGet, server.URL, nil, nil, collect))

	// The next submission must be rejected synchronously, not dropped.
	rejected := make(chan httpq.Result, 1)
	err := engine.Submit(http.MethodGet, server.URL, nil, nil, func(res httpq.Result) {
		rejected <- res
	})
	assert.ErrorIs(t, err, httpq.ErrQueueFull)

	select {
	case res := <-rejected:
		assert.ErrorIs(t, res.Err, httpq.ErrQueueFull)
		assert.Equal(t, -1, res.Status)
	default:
		t.Fatal("rejection callback did not fire synchronously")
	}

	// Drain: the accepted jobs must all complete once released.
	close(release)
	go func() {
		for range 2 {
			<-started
		}
	}()
	for range 3 {
		select {
		case res := <-results:
			assert.NoError(t, res.Err)
		case <-time.After(5 * time.Second):
			t.Fatal("accepted job never completed")
		}
	}
}

func TestNon2xxIsNotAnEngineError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("try later"))
	}))
	t.Cleanup(server.Close)

	engine := newEngine(t, httpq.Config{})

	done := make(chan httpq.Result, 1)
	require.NoError(t, engine.Submit(http.MethodGet, server.URL, nil, nil, func(res httpq.Result) {
		done <- res
	}))

	res := <-done
	assert.NoError(t, res.Err)
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	assert.Equal(t, []byte("try later"), res.Body)
}

func TestTransportErrorReportsMinusOne(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	engine := newEngine(t, httpq.Config{})

	done := make(chan httpq.Result, 1)
	require.NoError(t, engine.Submit(http.MethodGet, url, nil, nil, func(res httpq.Result) {
		done <- res
	}))

	res := <-done
	assert.Error(t, res.Err)
	assert.Equal(t, -1, res.Status)
}

func TestBinaryPayloadPreservedByteExact(t *testing.T) {
	t.Parallel()

	payload := []byte{0x00, 0x01, 0xFF, 0xFE, 0x7F, 0x80, 0x0A, 0x0D, 0x00}

	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = body
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	engine := newEngine(t, httpq.Config{})

	headers := []httpq.Header{{Key: "Content-Type", Value: "application/octet-stream"}}
	done := make(chan httpq.Result, 1)
	require.NoError(t, engine.Submit(http.MethodPost, server.URL, payload, headers, func(res httpq.Result) {
		done <- res
	}))

	res := <-done
	require.NoError(t, res.Err)
	assert.True(t, bytes.Equal(payload, received), "payload was not preserved byte-exact")
}

func TestBodyCapTruncatesAsSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0xAB}, 100))
	}))
	t.Cleanup(server.Close)

	engine := newEngine(t, httpq.Config{BodyCap: 8})

	done := make(chan httpq.Result, 1)
	require.NoError(t, engine.Submit(http.MethodGet, server.URL, nil, nil, func(res httpq.Result) {
		done <- res
	}))

	res := <-done
	assert.NoError(t, res.Err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body, 8)
}

func TestSubmitRejectsUnsupportedMethod(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, httpq.Config{})

	err := engine.Submit(http.MethodPut, "http://localhost", nil, nil, func(httpq.Result) {})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, httpq.ErrQueueFull)
}

func TestSubmitRequiresCallback(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, httpq.Config{})

	assert.Error(t, engine.Submit(http.MethodGet, "http://localhost", nil, nil, nil))
}

func TestCallbacksOrderedWithSingleWorker(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	t.Cleanup(server.Close)

	engine := newEngine(t, httpq.Config{Workers: 1, QueueSize: 8})

	order := make(chan string, 4)
	for _, path := range []string{"/a", "/b", "/c", "/d"} {
		require.NoError(t, engine.Submit(http.MethodGet, server.URL+path, nil, nil, func(res httpq.Result) {
			order <- string(res.Body)
		}))
	}

	for _, want := range []string{"/a", "/b", "/c", "/d"} {
		select {
		case got := <-order:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatal("callback never fired")
		}
	}
}
