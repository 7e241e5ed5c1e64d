package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"hotel-rate-intel/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s %s\n", version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}
