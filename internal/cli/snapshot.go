package cli

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/snapshot"
)

func newSnapshotCommand() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Keep a history of attendance summaries in Postgres",
		Long: `Store the summary statistics of a scope in the snapshot database and list
them later to follow a district or school over time. The database is set with
snapshot.dsn or ATTENDSUM_DB_DSN.`,
	}
	snapshotCmd.AddCommand(newSnapshotSaveCommand())
	snapshotCmd.AddCommand(newSnapshotListCommand())
	return snapshotCmd
}

func newSnapshotSaveCommand() *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:     "save",
		Short:   "Fetch the analysis for a scope and store its summary",
		Example: `  attendsum snapshot save --district 12`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scope.validate(); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := snapshot.Open(cmd.Context(), a.cfg.Snapshot.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			st, err := loadScope(cmd.Context(), ctrl, scope)
			if err != nil {
				return err
			}

			snap, err := store.Save(cmd.Context(), st.AnalysisCriteria, st.Analysis)
			if err != nil {
				return err
			}
			a.log.Debug("saved snapshot %s", snap.ID)

			if wantJSON() {
				return writeJSON(cmd, snap)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Snapshot %s saved for %s: %d students, %.1f%% below 85%%\n",
				GetEmoji("database"), snap.ID, scopeLabel(snap.Criteria), snap.TotalStudents, snap.Below85Percentage)
			return nil
		},
	}

	scope.bind(cmd)
	return cmd
}

func newSnapshotListCommand() *cobra.Command {
	var (
		scope scopeFlags
		all   bool
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Example: `  attendsum snapshot list --district 12 --since 720h
  attendsum snapshot list --all --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scope.validate(); err != nil {
				return err
			}

			q := snapshot.Query{Limit: limit}
			if !all {
				c := scope.criteria()
				q.Criteria = &c
			}
			if since > 0 {
				q.Since = time.Now().Add(-since)
			}

			cfg := GetGlobalConfig()
			store, err := snapshot.Open(cmd.Context(), cfg.Snapshot.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snaps, err := store.List(cmd.Context(), q)
			if err != nil {
				return err
			}

			if wantJSON() {
				return writeJSON(cmd, snaps)
			}
			return writeOutput(cmd, snapshotTable(snaps, cfg.Output.TimestampFormat), "")
		},
	}

	scope.bind(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "list snapshots of every scope")
	cmd.Flags().DurationVar(&since, "since", 0, "only snapshots taken within this duration, e.g. 168h")
	cmd.Flags().IntVar(&limit, "limit", snapshot.DefaultListLimit, "most snapshots to list")
	return cmd
}

func snapshotTable(snaps []snapshot.Snapshot, layout string) []byte {
	var b bytes.Buffer
	if len(snaps) == 0 {
		b.WriteString("No snapshots stored\n")
		return b.Bytes()
	}

	table := newRiskTable(&b, "Taken", "Scope", "Students", "Below 85%", "Tier 4")
	for _, s := range snaps {
		table.Append([]string{
			s.TakenAt.Local().Format(layout),
			scopeLabel(s.Criteria),
			strconv.Itoa(s.TotalStudents),
			fmt.Sprintf("%d (%.1f%%)", s.Below85Students, s.Below85Percentage),
			fmt.Sprintf("%d (%.1f%%)", s.Tier4Students, s.Tier4Percentage),
		})
	}
	table.Render()
	return b.Bytes()
}
