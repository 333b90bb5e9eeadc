package command

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luciancaetano/bedrocknet/events"
)

func newEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the event names a game client can be subscribed to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HANDLER NAME\tWIRE NAME")
			for _, name := range events.Names() {
				fmt.Fprintf(w, "%s\t%s\n", events.HandlerName(name), name)
			}
			return w.Flush()
		},
	}
}
