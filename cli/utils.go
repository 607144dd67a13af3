package cli

import (
	"fmt"

	"github.com/fatih/color"
	prettyjson "github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

func logJSONCmd(cmd cobra.Command, v any) {
	data, err := prettyjson.Marshal(v)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nerror: %s\n\n", boldRed.Sprint(err.Error()))
}

func logSuccessCmd(cmd cobra.Command, msg string) {
	green := color.New(color.FgGreen)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", green.Sprint(msg))
}
