package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/listener"
	"github.com/yildizm/AttendSum/internal/session"
	"github.com/yildizm/AttendSum/internal/ui"
	"github.com/yildizm/AttendSum/internal/views"
)

func newDashboardCommand() *cobra.Command {
	var (
		listen     bool
		reportType string
	)

	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui", "tui"},
		Short:   "Open the interactive attendance dashboard",
		Long: `Open the terminal dashboard: pick a district, school and grade, apply the
filters and browse the summary, the grade and school risk tables, insights and
recommendations. Press ? inside the dashboard for the key bindings.

When session.watch is on, a login or logout from another attendsum process is
picked up immediately. --listen also accepts token handovers over HTTP.`,
		Example: `  attendsum dashboard
  attendsum dashboard --listen`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetGlobalConfig()
			if reportType == "" {
				reportType = cfg.Reports.DefaultType
			}
			kind, err := parseReportType(reportType)
			if err != nil {
				return err
			}
			sortKey, err := views.ParseSchoolSortKey(cfg.Dashboard.SchoolSort)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// Console logging would tear the alternate screen
			a.log.SetOutput(nil)

			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			unbind := ctrl.BindSession(a.session)
			defer unbind()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if cfg.Session.Watch {
				if err := startSessionWatcher(ctx, a); err != nil {
					a.log.Warn("session watch disabled: %v", err)
				}
			}
			if listen {
				srv := listener.New(cfg.Session.ListenAddr, a.session, a.log.WithComponent("listener"))
				go func() {
					if err := srv.Run(ctx); err != nil {
						a.log.Error("listener stopped: %v", err)
					}
				}()
			}

			return ui.Run(ctx, ctrl, ui.Options{
				PageSize:      cfg.Dashboard.PageSize,
				GradeSortDesc: cfg.Dashboard.GradeSortDesc,
				SchoolSort:    sortKey,
				ReportType:    kind,
				AIEnabled:     cfg.AI.Enabled,
			})
		},
	}

	cmd.Flags().BoolVar(&listen, "listen", false, "accept token handovers on session.listen_addr while open")
	cmd.Flags().StringVar(&reportType, "report-type", "", "report type selected for downloads (default reports.default_type)")
	return cmd
}

// startSessionWatcher follows the token file in the background until ctx
// is done
func startSessionWatcher(ctx context.Context, a *app) error {
	if err := os.MkdirAll(filepath.Dir(a.store.Path()), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	w := session.NewWatcher(a.session, a.store, a.log.WithComponent("watcher"))
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	select {
	case <-w.Ready():
		go func() {
			if err := <-errCh; err != nil {
				a.log.Warn("session watcher stopped: %v", err)
			}
		}()
		return nil
	case err := <-errCh:
		return err
	}
}
