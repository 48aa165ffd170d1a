package command

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vcampus/internal/campus"
)

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				rtt, err := c.Ping(ctx)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ PONG in %s\n", rtt.Round(time.Microsecond))
				return nil
			})
		},
	}
}
