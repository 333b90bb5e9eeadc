package command

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/luciancaetano/bedrocknet/cmd/bedrocknet/command.Version=...".
var (
	Version   = "dev"
	GitHash   = "unknown"
	BuildDate = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version of bedrocknet",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bedrocknet version \"%s (%s)\" %s %s/%s\n",
				Version, GitHash, BuildDate, runtime.GOOS, runtime.GOARCH)
		},
	}
}
