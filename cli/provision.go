package cli

import (
	"errors"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gridgame/boardlink"
	"github.com/gridgame/boardlink/board"
)

const (
	defPollIntervalMS   = 5000
	defReportIntervalMS = 3000
)

var errEmptyValue = errors.New("value cannot be empty")

// NewProvisionCmd builds the interactive command that writes a board
// configuration file.
func NewProvisionCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a board configuration",
		Long:  `Interactively collect server and board settings and write them to a TOML configuration file.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := boardlink.Config{
				Timing: boardlink.TimingConfig{
					PollIntervalMS:   defPollIntervalMS,
					ReportIntervalMS: defReportIntervalMS,
				},
			}
			pollMS := strconv.Itoa(defPollIntervalMS)
			reportMS := strconv.Itoa(defReportIntervalMS)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Server URL").
						Placeholder("http://192.168.2.131").
						Validate(notEmpty).
						Value(&cfg.Server.URL),
					huh.NewInput().
						Title("Username").
						Validate(notEmpty).
						Value(&cfg.Server.Username),
					huh.NewInput().
						Title("Password").
						EchoMode(huh.EchoModePassword).
						Validate(notEmpty).
						Value(&cfg.Server.Password),
				),
				huh.NewGroup(
					huh.NewInput().
						Title("Board name").
						Placeholder("leave empty for a generated name").
						Value(&cfg.Board.Name),
					huh.NewSelect[string]().
						Title("Board type").
						Options(
							huh.NewOption("solar", board.Solar.String()),
							huh.NewOption("wind", board.Wind.String()),
							huh.NewOption("battery", board.Battery.String()),
							huh.NewOption("generic", board.Generic.String()),
						).
						Value(&cfg.Board.Type),
					huh.NewInput().
						Title("Poll interval (ms)").
						Validate(positiveInt).
						Value(&pollMS),
					huh.NewInput().
						Title("Report interval (ms)").
						Validate(positiveInt).
						Value(&reportMS),
				),
			)

			if err := form.Run(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			cfg.Timing.PollIntervalMS, _ = strconv.ParseInt(pollMS, 10, 64)
			cfg.Timing.ReportIntervalMS, _ = strconv.ParseInt(reportMS, 10, 64)

			if err := boardlink.SaveConfig(output, cfg); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			logSuccessCmd(*cmd, "Successfully wrote "+output)
			redacted := cfg
			redacted.Server.Password = "********"
			logJSONCmd(*cmd, redacted)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "board.toml", "Path of the configuration file to write")

	return cmd
}

func notEmpty(s string) error {
	if s == "" {
		return errEmptyValue
	}

	return nil
}

func positiveInt(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	if n <= 0 {
		return errors.New("value must be positive")
	}

	return nil
}
