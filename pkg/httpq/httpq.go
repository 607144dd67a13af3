// Package httpq is a bounded, non-blocking HTTP request engine. Callers
// submit jobs to a fixed-capacity FIFO queue; long-lived workers drain the
// queue, execute each request against a per-worker persistent client and
// deliver the outcome through a completion callback. The engine performs no
// retries; retry policy belongs to the caller.
package httpq

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultQueueSize = 12
	DefaultWorkers   = 1
	DefaultBodyCap   = 64 * 1024

	DefaultConnectTimeout = 15 * time.Second
	DefaultIdleTimeout    = 15 * time.Second
	DefaultReadTimeout    = 15 * time.Second
)

var (
	// ErrQueueFull is delivered synchronously when a submission does not fit
	// in the queue. The caller decides when to re-attempt.
	ErrQueueFull = errors.New("request queue full")

	errInvalidMethod = errors.New("method must be GET or POST")
	errNilCallback   = errors.New("completion callback is required")
)

// Header is a single request header. Headers are kept as an ordered list so
// they are sent exactly as the caller supplied them.
type Header struct {
	Key   string
	Value string
}

// Result is the single completion delivered for every accepted submission.
// Status is -1 when the request never produced an HTTP status line; a
// non-2xx status is not an engine error and arrives with Err == nil.
type Result struct {
	Status int
	Body   []byte
	Err    error
}

// Callback receives the result on a worker goroutine. It must not block.
type Callback func(Result)

type Config struct {
	Workers        int
	QueueSize      int
	BodyCap        int64
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
	ReadTimeout    time.Duration
	InsecureTLS    bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.BodyCap <= 0 {
		c.BodyCap = DefaultBodyCap
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}

	return c
}

type request struct {
	method  string
	url     string
	payload []byte
	headers []Header
	done    Callback
}

// Engine owns the queue and the worker pool. Configuration is fixed at
// construction.
type Engine struct {
	cfg    Config
	queue  chan *request
	logger *slog.Logger
}

// New starts cfg.Workers worker goroutines that run until ctx is cancelled.
// A job already dispatched to a worker runs to completion or timeout;
// cancellation only stops pickup of new work. Jobs still queued when ctx is
// cancelled are dropped without a callback, so the exactly-one-callback
// guarantee holds only while the engine is running.
func New(ctx context.Context, cfg Config, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		queue:  make(chan *request, cfg.QueueSize),
		logger: logger,
	}
	for i := range cfg.Workers {
		w := &worker{id: i, cfg: cfg, logger: logger}
		go w.run(ctx, e.queue)
	}

	return e
}

// Submit enqueues one HTTP job. It never blocks: when the queue is full the
// callback fires synchronously with ErrQueueFull and the same error is
// returned. On acceptance the callback fires exactly once from a worker.
// The payload is owned by the engine from this point on and must not be
// mutated by the caller.
func (e *Engine) Submit(method, rawURL string, payload []byte, headers []Header, done Callback) error {
	if done == nil {
		return errNilCallback
	}
	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("%w: %q", errInvalidMethod, method)
	}

	req := &request{method: method, url: rawURL, payload: payload, headers: headers, done: done}
	select {
	case e.queue <- req:
		return nil
	default:
		done(Result{Status: -1, Err: ErrQueueFull})

		return ErrQueueFull
	}
}

// Depth reports how many jobs are currently queued.
func (e *Engine) Depth() int {
	return len(e.queue)
}

// Capacity reports the fixed queue bound.
func (e *Engine) Capacity() int {
	return e.cfg.QueueSize
}

type worker struct {
	id     int
	cfg    Config
	logger *slog.Logger

	client *http.Client
	origin string
}

func (w *worker) run(ctx context.Context, queue <-chan *request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-queue:
			res := w.perform(ctx, req)
			req.done(res)
		}
	}
}

func (w *worker) perform(ctx context.Context, req *request) Result {
	origin, secure, err := originOf(req.url)
	if err != nil {
		return Result{Status: -1, Err: err}
	}

	// The persistent client is reused only while consecutive jobs share an
	// origin. On mismatch the old connections are torn down before a fresh
	// client is built for the new origin.
	if w.client == nil || w.origin != origin {
		if w.client != nil {
			w.client.CloseIdleConnections()
		}
		w.client = w.newClient(secure)
		w.origin = origin
		w.logger.Debug("worker client rebuilt",
			slog.Int("worker", w.id),
			slog.String("origin", origin),
		)
	}

	// Hard stop for the whole exchange. Connect and idle phases are bounded
	// by the transport; the body read is bounded by this deadline.
	deadline := w.cfg.ConnectTimeout + w.cfg.IdleTimeout + w.cfg.ReadTimeout
	reqCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var body io.Reader = http.NoBody
	if len(req.payload) > 0 {
		body = bytes.NewReader(req.payload)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.method, req.url, body)
	if err != nil {
		return Result{Status: -1, Err: err}
	}
	for _, h := range req.headers {
		httpReq.Header.Set(h.Key, h.Value)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		w.logger.Debug("request failed",
			slog.Int("worker", w.id),
			slog.String("method", req.method),
			slog.String("url", req.url),
			slog.Any("error", err),
		)

		return Result{Status: -1, Err: err}
	}
	defer resp.Body.Close()

	// Bodies beyond the cap are truncated and treated as success.
	data, err := io.ReadAll(io.LimitReader(resp.Body, w.cfg.BodyCap+1))
	if err != nil {
		return Result{Status: -1, Err: err}
	}
	if int64(len(data)) > w.cfg.BodyCap {
		data = data[:w.cfg.BodyCap]
	}

	return Result{Status: resp.StatusCode, Body: data}
}

func (w *worker) newClient(secure bool) *http.Client {
	dialer := &net.Dialer{Timeout: w.cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   w.cfg.ConnectTimeout,
		ResponseHeaderTimeout: w.cfg.IdleTimeout,
		IdleConnTimeout:       w.cfg.IdleTimeout,
		MaxIdleConnsPerHost:   1,
	}
	if secure && w.cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{Transport: transport}
}

// originOf reduces a URL to scheme://host:port, filling in the scheme
// default port so equivalent URLs map to the same cached connection.
func originOf(rawURL string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, err
	}

	var secure bool
	switch u.Scheme {
	case "http":
	case "https":
		secure = true
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("missing host in %q", rawURL)
	}

	port := u.Port()
	if port == "" {
		if secure {
			port = "443"
		} else {
			port = "80"
		}
	}

	return u.Scheme + "://" + u.Hostname() + ":" + port, secure, nil
}
