package cli

import (
	"github.com/spf13/cobra"

	"github.com/gridgame/boardlink/pkg/sdk"
)

// NewStatusCmd builds the command group that queries a running board's
// local status API.
func NewStatusCmd() *cobra.Command {
	var (
		boardURL string
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a running board's lifecycle state",
		Run: func(cmd *cobra.Command, _ []string) {
			s := sdk.NewSDK(sdk.Config{BoardURL: boardURL, TLSVerification: !insecure})
			status, err := s.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}

	coeffsCmd := &cobra.Command{
		Use:   "coefficients",
		Short: "Show the board's latest coefficient tables",
		Run: func(cmd *cobra.Command, _ []string) {
			s := sdk.NewSDK(sdk.Config{BoardURL: boardURL, TLSVerification: !insecure})
			coeffs, err := s.Coefficients()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, coeffs)
		},
	}
	cmd.AddCommand(coeffsCmd)

	cmd.PersistentFlags().StringVarP(&boardURL, "board-url", "b", "http://localhost:7171", "Base URL of the board's status API")
	cmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")

	return cmd
}
