package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/listener"
	"github.com/yildizm/AttendSum/internal/session"
)

func newListenCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept session tokens handed over by other applications",
		Long: `Serve POST /messages on a loopback address. A message of type AUTH_TOKEN
from an allowed origin (session.allowed_origins) replaces the stored token, so
every attendsum process picks it up. GET /healthz reports whether a session
is active. Press Ctrl+C to stop.`,
		Example: `  attendsum listen
  attendsum listen --addr 127.0.0.1:8765`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = GetGlobalConfig().Session.ListenAddr
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			unsubscribe := a.session.Subscribe(func(c session.Change) {
				if c.Authenticated {
					fmt.Fprintf(out, "%s Token received (%s)\n", GetEmoji("key"), c.Source)
					return
				}
				fmt.Fprintf(out, "%s Session cleared (%s)\n", GetEmoji("lock"), c.Source)
			})
			defer unsubscribe()

			fmt.Fprintf(out, "%s Listening on http://%s\n", GetEmoji("rocket"), addr)
			return listener.New(addr, a.session, a.log.WithComponent("listener")).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default session.listen_addr)")
	return cmd
}
