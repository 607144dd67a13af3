package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/fatih/color"
	"github.com/google/uuid"
	prettyjson "github.com/hokaccha/go-prettyjson"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/gridgame/boardlink"
	"github.com/gridgame/boardlink/board"
	"github.com/gridgame/boardlink/client"
	"github.com/gridgame/boardlink/client/api"
	"github.com/gridgame/boardlink/pkg/httpq"
	"github.com/gridgame/boardlink/simulation"
)

const (
	tickCadence         = 50 * time.Millisecond
	statusPrintInterval = 15 * time.Second
	setupRetryDelay     = 5 * time.Second
	shutdownTimeout     = 5 * time.Second
)

type startConfig struct {
	ConfigPath  string
	LogLevel    string
	StatusAddr  string
	Workers     int
	QueueSize   int
	InsecureTLS bool
}

func startBoard(ctx context.Context, cancel context.CancelFunc, cfg startConfig) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	clientCfg, identity, err := resolveConfig(cfg.ConfigPath, logger)
	if err != nil {
		return err
	}

	instanceID := uuid.NewString()

	engine := httpq.New(ctx, httpq.Config{
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		InsecureTLS: cfg.InsecureTLS,
	}, logger)

	c, err := client.New(clientCfg, identity, engine, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return errors.Join(errors.New("failed to initialize client"), err)
	}

	gen := simulation.NewGenerator(identity.Type, time.Now().UnixNano())
	c.SetProductionProvider(gen.Production)
	c.SetConsumptionProvider(gen.Consumption)
	c.SetPlantsProvider(func() []board.ConnectedPlant {
		return simulation.DemoPlants(gen.Production())
	})
	c.SetConsumersProvider(simulation.DemoConsumers)

	c.LinkUp()
	if err := setup(ctx, c, logger); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:    cfg.StatusAddr,
		Handler: api.MakeHandler(c, prometheus.DefaultGatherer, instanceID),
	}
	g.Go(func() error {
		logger.Info("status API listening", slog.String("addr", cfg.StatusAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return runTicks(ctx, c, logger)
	})

	g.Go(func() error {
		printStatus(ctx, c, engine)

		return nil
	})

	return g.Wait()
}

// resolveConfig layers the TOML file over the environment defaults.
func resolveConfig(path string, logger *slog.Logger) (client.Config, board.Identity, error) {
	clientCfg, err := client.LoadConfig()
	if err != nil {
		return client.Config{}, board.Identity{}, errors.Join(errors.New("failed to parse environment"), err)
	}

	boardName := ""
	boardType := board.Generic

	fileCfg, err := boardlink.LoadConfig(path)
	switch {
	case err == nil:
		if err := fileCfg.Validate(); err != nil {
			return client.Config{}, board.Identity{}, fmt.Errorf("invalid config file %q: %w", path, err)
		}
		clientCfg.ServerURL = fileCfg.Server.URL
		clientCfg.Username = fileCfg.Server.Username
		clientCfg.Password = fileCfg.Server.Password
		if fileCfg.Timing.PollIntervalMS > 0 {
			clientCfg.PollInterval = time.Duration(fileCfg.Timing.PollIntervalMS) * time.Millisecond
		}
		if fileCfg.Timing.ReportIntervalMS > 0 {
			clientCfg.ReportInterval = time.Duration(fileCfg.Timing.ReportIntervalMS) * time.Millisecond
		}
		boardName = fileCfg.Board.Name
		if fileCfg.Board.Type != "" {
			boardType, err = board.ParseType(fileCfg.Board.Type)
			if err != nil {
				return client.Config{}, board.Identity{}, err
			}
		}
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no config file, using environment only", slog.String("path", path))
	default:
		return client.Config{}, board.Identity{}, err
	}

	if boardName == "" {
		boardName = namegenerator.NewGenerator().Generate()
		logger.Info("generated board name", slog.String("name", boardName))
	}

	return clientCfg, board.NewIdentity(boardName, boardType), nil
}

// setup logs in and registers, retrying until it succeeds or ctx ends.
func setup(ctx context.Context, c *client.Client, logger *slog.Logger) error {
	for {
		err := c.Login(ctx)
		if err == nil {
			if err = c.Register(ctx); err == nil {
				return nil
			}
		}
		logger.Warn("setup attempt failed, retrying", slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(setupRetryDelay):
		}
	}
}

func runTicks(ctx context.Context, c *client.Client, logger *slog.Logger) error {
	ticker := time.NewTicker(tickCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping tick loop")

			return nil
		case <-ticker.C:
			if c.Tick() {
				printCoefficients(c)
			}
		}
	}
}

func printCoefficients(c *client.Client) {
	data, err := prettyjson.Marshal(c.Coefficients())
	if err != nil {
		return
	}

	fmt.Println(color.CyanString("coefficients updated:"))
	fmt.Println(string(data))
}

func printStatus(ctx context.Context, c *client.Client, engine *httpq.Engine) {
	ticker := time.NewTicker(statusPrintInterval)
	defer ticker.Stop()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			line := fmt.Sprintf("board=%s type=%s state=%s game_active=%t queue=%d/%d",
				c.Identity().Name,
				c.Identity().Type,
				c.State(),
				c.GameActive(),
				engine.Depth(),
				engine.Capacity(),
			)
			if c.GameActive() {
				green.Println(line)
			} else {
				yellow.Println(line)
			}
		}
	}
}
