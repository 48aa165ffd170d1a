package command

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vcampus/internal/campus"
	"vcampus/internal/protocol"
	"vcampus/internal/transport"
)

func newMonitorCmd(a *app) *cobra.Command {
	var duration time.Duration
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print server notices until interrupted",
		Long: `Stay connected and print every notice the server broadcasts, plus
connection status changes. Stops on Ctrl+C, when the server goes away, or
after --duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer sess.conn.Close()
			out := cmd.OutOrStdout()

			// every callback below runs on the connection's event loop
			sess.conn.SetMessageListener(protocol.TypeNotice, func(msg *protocol.Message) {
				var n campus.Notice
				if err := msg.Decode(&n); err != nil {
					failure.Fprintf(out, "✗ unreadable notice: %v\n", err)
					return
				}
				at := time.UnixMilli(msg.SentAt)
				notice.Fprintf(out, "🔔 [%s] %s\n", at.Format("15:04:05"), n.Text)
			})
			sess.conn.SetMessageListener(protocol.TypeError, func(msg *protocol.Message) {
				var f campus.Failure
				_ = msg.Decode(&f)
				failure.Fprintf(out, "✗ server error: %s\n", f.Reason)
			})

			lost := make(chan struct{})
			var lostOnce sync.Once
			sess.conn.OnStatusChange(func(s transport.State) {
				faint.Fprintf(out, "status: %s\n", s)
				if s == transport.StateDisconnected {
					lostOnce.Do(func() { close(lost) })
				}
			})

			stats := sess.conn.Stats()
			success.Fprintf(out, "✓ Connected to %s, waiting for notices\n", stats.RemoteAddr)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			var timeout <-chan time.Time
			if duration > 0 {
				timer := time.NewTimer(duration)
				defer timer.Stop()
				timeout = timer.C
			}

			select {
			case <-sigChan:
			case <-timeout:
			case <-cmd.Context().Done():
			case <-lost:
				return fmt.Errorf("connection to %s lost", stats.RemoteAddr)
			}

			stats = sess.conn.Stats()
			faint.Fprintf(out, "connected %s, %d sent, %d received\n",
				stats.Uptime.Round(time.Second), stats.MessagesSent, stats.MessagesReceived)
			return nil
		},
	}
	monitorCmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 waits for Ctrl+C)")
	return monitorCmd
}
