// Package client owns the board's session with the game server: login,
// registration, periodic coefficient polling and periodic telemetry
// reporting. All network work goes through the request engine so the host
// tick never blocks on I/O.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridgame/boardlink/board"
	"github.com/gridgame/boardlink/pkg/codec"
	"github.com/gridgame/boardlink/pkg/httpq"
)

const (
	loginEndpoint     = "/coreapi/login"
	registerEndpoint  = "/coreapi/register"
	pollEndpoint      = "/coreapi/poll_binary"
	reportEndpoint    = "/coreapi/post_vals"
	plantsEndpoint    = "/coreapi/prod_connected"
	consumersEndpoint = "/coreapi/cons_connected"

	tokenLogPrefixLength = 12
)

var (
	ErrLinkDown            = errors.New("network link is down")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrSetupTimeout        = errors.New("timed out waiting for server response")
	ErrRegistrationRefused = errors.New("registration refused by server")
)

// State is the client's lifecycle position. Registered implies LoggedIn.
type State uint8

const (
	Disconnected State = iota
	LoggedOut
	LoggedIn
	Registered
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case LoggedOut:
		return "logged_out"
	case LoggedIn:
		return "logged_in"
	case Registered:
		return "registered"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Submitter is the slice of the request engine the client needs.
type Submitter interface {
	Submit(method, url string, payload []byte, headers []httpq.Header, done httpq.Callback) error
}

// PowerProvider returns the board's current production or consumption in
// watts. It is invoked from the tick context at most once per reporting
// interval and must complete in microseconds.
type PowerProvider func() float64

// PlantsProvider returns the locally attached simulated plants.
type PlantsProvider func() []board.ConnectedPlant

// ConsumersProvider returns the locally attached simulated consumers.
type ConsumersProvider func() []board.ConnectedConsumer

// Client is the session and tick orchestrator for one board.
type Client struct {
	cfg      Config
	identity board.Identity
	engine   Submitter
	logger   *slog.Logger
	metrics  *metrics

	production  PowerProvider
	consumption PowerProvider
	plants      PlantsProvider
	consumers   ConsumersProvider

	now func() time.Time

	mu             sync.Mutex
	state          State
	token          string
	tables         board.CoefficientTable
	gameActive     bool
	coeffsUpdated  bool
	pollInFlight   bool
	reportInFlight bool
	reportPending  int
	lastPoll       time.Time
	lastReport     time.Time
}

func New(cfg Config, identity board.Identity, engine Submitter, reg prometheus.Registerer, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	if engine == nil {
		return nil, errors.New("request engine is required")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Client{
		cfg:      cfg,
		identity: identity,
		engine:   engine,
		logger:   logger,
		metrics:  newMetrics(reg),
		now:      time.Now,
		state:    Disconnected,
	}, nil
}

// SetProductionProvider installs the production telemetry source.
func (c *Client) SetProductionProvider(p PowerProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.production = p
}

// SetConsumptionProvider installs the consumption telemetry source.
func (c *Client) SetConsumptionProvider(p PowerProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumption = p
}

// SetPlantsProvider installs the connected-plants telemetry source.
func (c *Client) SetPlantsProvider(p PlantsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plants = p
}

// SetConsumersProvider installs the connected-consumers telemetry source.
func (c *Client) SetConsumersProvider(p ConsumersProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = p
}

// LinkUp tells the client the network link is available. A disconnected
// client moves to LoggedOut; any other state is untouched.
func (c *Client) LinkUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		c.state = LoggedOut
	}
}

// LinkDown drops the session. Credentials are retained, the token is not.
func (c *Client) LinkDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Disconnected
	c.token = ""
	c.logger.Info("link lost, session discarded")
}

// Login authenticates against the server and stores the bearer token. It is
// synchronous from the caller's standpoint: one job is submitted and awaited
// with a bounded deadline, without blocking other workers.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()

		return ErrLinkDown
	}
	username, password := c.cfg.Username, c.cfg.Password
	c.mu.Unlock()

	payload, err := codec.EncodeLogin(username, password)
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	headers := []httpq.Header{{Key: "Content-Type", Value: codec.CTJSON}}
	res, err := c.await(ctx, http.MethodPost, c.cfg.ServerURL+loginEndpoint, payload, headers)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("login transport failure: %w", res.Err)
	}
	if res.Status != http.StatusOK {
		return fmt.Errorf("login rejected with status %d", res.Status)
	}

	token, err := codec.DecodeLogin(res.Body)
	if err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		return ErrLinkDown
	}
	c.token = token
	if c.state == LoggedOut {
		c.state = LoggedIn
	}
	c.logger.Info("logged in",
		slog.String("username", username),
		slog.String("token_prefix", tokenPrefix(token)),
	)

	return nil
}

// Register announces the board to the running game. Board identity is
// implied by the bearer token, so the request body is empty. A refusal
// leaves the client LoggedIn and surfaces the server message.
func (c *Client) Register(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()

		return ErrLinkDown
	}
	if c.state < LoggedIn {
		c.mu.Unlock()

		return ErrNotLoggedIn
	}
	token := c.token
	c.mu.Unlock()

	res, err := c.await(ctx, http.MethodPost, c.cfg.ServerURL+registerEndpoint, nil, c.binaryHeaders(token))
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("register transport failure: %w", res.Err)
	}
	if res.Status != http.StatusOK {
		return fmt.Errorf("register rejected with status %d", res.Status)
	}

	reg, err := codec.DecodeRegistration(res.Body)
	if err != nil {
		return fmt.Errorf("failed to decode register response: %w", err)
	}
	if !reg.OK {
		return fmt.Errorf("%w: %s", ErrRegistrationRefused, reg.Message)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		return ErrLinkDown
	}
	c.state = Registered
	c.logger.Info("board registered",
		slog.String("name", c.identity.Name),
		slog.String("type", c.identity.Type.String()),
	)

	return nil
}

// await submits one job and blocks until its completion, ctx cancellation
// or the setup deadline, whichever comes first.
func (c *Client) await(ctx context.Context, method, url string, payload []byte, headers []httpq.Header) (httpq.Result, error) {
	done := make(chan httpq.Result, 1)
	if err := c.engine.Submit(method, url, payload, headers, func(res httpq.Result) {
		done <- res
	}); err != nil {
		return httpq.Result{}, err
	}

	timer := time.NewTimer(c.cfg.SetupTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return httpq.Result{}, ctx.Err()
	case <-timer.C:
		return httpq.Result{}, ErrSetupTimeout
	}
}

// Tick drives the periodic work. It is cheap, never blocks on the network,
// and reports the one-shot "coefficients were just refreshed" edge.
func (c *Client) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Registered {
		return false
	}

	now := c.now()

	if !c.pollInFlight && now.Sub(c.lastPoll) >= c.cfg.PollInterval {
		c.submitPoll()
	}

	if c.gameActive && !c.reportInFlight && now.Sub(c.lastReport) >= c.cfg.ReportInterval {
		c.submitReportBurst(now)
	}

	edge := c.coeffsUpdated
	c.coeffsUpdated = false

	return edge
}

// submitPoll is called with the mutex held.
func (c *Client) submitPoll() {
	err := c.engine.Submit(http.MethodGet, c.cfg.ServerURL+pollEndpoint, nil, c.authHeaders(c.token), c.onPoll)
	if errors.Is(err, httpq.ErrQueueFull) {
		// Natural backpressure: the flag stays down and the next tick past
		// the deadline re-attempts.
		c.metrics.queueRejections.Inc()

		return
	}
	if err != nil {
		c.logger.Error("failed to submit poll", slog.Any("error", err))

		return
	}
	c.pollInFlight = true
}

func (c *Client) onPoll(res httpq.Result) {
	if errors.Is(res.Err, httpq.ErrQueueFull) {
		// Rejections are handled on the submit path; the flag was never set.
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollInFlight = false
	c.lastPoll = c.now()

	switch {
	case res.Err != nil:
		c.metrics.polls.WithLabelValues("transport_error").Inc()
		c.logger.Warn("poll transport failure", slog.Any("error", res.Err))
	case res.Status == http.StatusUnauthorized:
		// Token loss is surfaced, not auto-repaired: the host observes the
		// repeated failures and restarts setup.
		c.metrics.polls.WithLabelValues("http_error").Inc()
		c.logger.Warn("poll unauthorized, token may be stale", slog.Int("status", res.Status))
	case res.Status/100 != 2:
		c.metrics.polls.WithLabelValues("http_error").Inc()
		c.logger.Warn("poll rejected", slog.Int("status", res.Status))
	default:
		table, active, err := codec.DecodePoll(res.Body)
		if err != nil {
			c.metrics.polls.WithLabelValues("malformed").Inc()
			c.logger.Warn("discarding malformed poll body", slog.Int("length", len(res.Body)))

			return
		}
		c.tables = table
		c.gameActive = active
		c.coeffsUpdated = true
		if active {
			c.metrics.polls.WithLabelValues("ok").Inc()
		} else {
			c.metrics.polls.WithLabelValues("paused").Inc()
		}
		c.logger.Debug("coefficients refreshed",
			slog.Bool("game_active", active),
			slog.Int("production", len(table.Production)),
			slog.Int("consumption", len(table.Consumption)),
		)
	}
}

// submitReportBurst is called with the mutex held. The three POSTs are
// enqueued in a fixed order so a single worker executes them in order.
func (c *Client) submitReportBurst(now time.Time) {
	type submission struct {
		endpoint string
		payload  []byte
	}

	var subs []submission
	if c.plants != nil {
		subs = append(subs, submission{plantsEndpoint, codec.EncodeConnectedPlants(c.plants())})
	}
	if c.consumers != nil {
		subs = append(subs, submission{consumersEndpoint, codec.EncodeConnectedConsumers(c.consumers())})
	}
	if c.production != nil && c.consumption != nil {
		subs = append(subs, submission{reportEndpoint, codec.EncodePowerReport(c.production(), c.consumption())})
	}

	if len(subs) == 0 {
		c.lastReport = now

		return
	}

	accepted := 0
	headers := c.binaryHeaders(c.token)
	for _, sub := range subs {
		endpoint := sub.endpoint
		err := c.engine.Submit(http.MethodPost, c.cfg.ServerURL+endpoint, sub.payload, headers, func(res httpq.Result) {
			c.onReport(endpoint, res)
		})
		if errors.Is(err, httpq.ErrQueueFull) {
			c.metrics.queueRejections.Inc()

			continue
		}
		if err != nil {
			c.logger.Error("failed to submit report", slog.String("endpoint", endpoint), slog.Any("error", err))

			continue
		}
		accepted++
	}

	// A fully rejected burst is retried on the next tick; a partial burst
	// counts as this interval's report.
	if accepted == 0 {
		return
	}
	c.reportInFlight = true
	c.reportPending = accepted
	c.lastReport = now
}

func (c *Client) onReport(endpoint string, res httpq.Result) {
	if errors.Is(res.Err, httpq.ErrQueueFull) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportPending--
	if c.reportPending <= 0 {
		c.reportPending = 0
		c.reportInFlight = false
	}

	switch {
	case res.Err != nil:
		c.metrics.reports.WithLabelValues(endpoint, "transport_error").Inc()
		c.logger.Warn("report transport failure", slog.String("endpoint", endpoint), slog.Any("error", res.Err))
	case res.Status/100 != 2:
		c.metrics.reports.WithLabelValues(endpoint, "http_error").Inc()
		c.logger.Warn("report rejected", slog.String("endpoint", endpoint), slog.Int("status", res.Status))
	default:
		c.metrics.reports.WithLabelValues(endpoint, "ok").Inc()
	}
}

// State reports the lifecycle position.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// GameActive reports whether the last successful poll carried coefficients.
func (c *Client) GameActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gameActive
}

// Coefficients returns a copy of the latest coefficient tables.
func (c *Client) Coefficients() board.CoefficientTable {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tables.Clone()
}

// Identity returns the board's immutable identity.
func (c *Client) Identity() board.Identity {
	return c.identity
}

func (c *Client) authHeaders(token string) []httpq.Header {
	return []httpq.Header{
		{Key: "Authorization", Value: "Bearer " + token},
	}
}

func (c *Client) binaryHeaders(token string) []httpq.Header {
	return []httpq.Header{
		{Key: "Authorization", Value: "Bearer " + token},
		{Key: "Content-Type", Value: codec.CTOctetStream},
	}
}

func tokenPrefix(token string) string {
	if len(token) <= tokenLogPrefixLength {
		return token
	}

	return token[:tokenLogPrefixLength] + "..."
}
