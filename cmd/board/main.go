package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gridgame/boardlink/cli"
)

var (
	configPath  = "board.toml"
	logLevel    = "info"
	statusAddr  = ":7171"
	workers     = 1
	queueSize   = 12
	insecureTLS = false
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "board",
		Short: "Smart-grid game board client",
		Long:  `board runs one producer/consumer node of the classroom smart-grid simulation game.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the board client",
		Long:  `Start the board client: log in, register, then poll and report until interrupted.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := startConfig{
				ConfigPath:  configPath,
				LogLevel:    logLevel,
				StatusAddr:  statusAddr,
				Workers:     workers,
				QueueSize:   queueSize,
				InsecureTLS: insecureTLS,
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := startBoard(ctx, cancel, cfg); err != nil {
				slog.Error("board stopped", slog.String("error", err.Error()))
			}
		},
	}

	startCmd.Flags().StringVarP(&configPath, "config", "c", configPath, "Path to the TOML configuration file")
	startCmd.Flags().StringVarP(&logLevel, "log-level", "l", logLevel, "Log level (debug, info, warn, error)")
	startCmd.Flags().StringVarP(&statusAddr, "status-addr", "s", statusAddr, "Listen address of the local status API")
	startCmd.Flags().IntVarP(&workers, "workers", "w", workers, "Number of request engine workers")
	startCmd.Flags().IntVarP(&queueSize, "queue-size", "q", queueSize, "Capacity of the request queue")
	startCmd.Flags().BoolVar(&insecureTLS, "insecure-tls", insecureTLS, "Skip TLS certificate verification")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(cli.NewProvisionCmd())
	rootCmd.AddCommand(cli.NewStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
