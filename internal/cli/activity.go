package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yildizm/AttendSum/internal/activity"
)

func newActivityCommand() *cobra.Command {
	var (
		file   string
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Summarize the local activity log",
		Long: `Read the logfmt activity log (logging.activity_file) and summarize request
counts, failures and latency per API endpoint along with recent warnings.`,
		Example: `  attendsum activity
  attendsum activity --since 24h --recent 20
  attendsum activity tail`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := activityPath(file)
			if err != nil {
				return err
			}

			opts := activity.Options{Recent: recent}
			if since > 0 {
				opts.Since = time.Now().Add(-since)
			}
			s, err := activity.SummarizeFile(path, opts)
			if err != nil {
				return err
			}

			if wantJSON() {
				return writeJSON(cmd, s)
			}
			return writeOutput(cmd, activityText(s), "")
		},
	}

	cmd.PersistentFlags().StringVar(&file, "file", "", "activity log to read (default logging.activity_file)")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries within this duration, e.g. 24h")
	cmd.Flags().IntVar(&recent, "recent", activity.DefaultRecent, "warnings and errors to list")
	cmd.AddCommand(newActivityTailCommand(&file))
	return cmd
}

func activityPath(flag string) (string, error) {
	path := flag
	if path == "" {
		path = GetGlobalConfig().Logging.ActivityFile
	}
	if path == "" {
		return "", fmt.Errorf("no activity log configured (set logging.activity_file or pass --file)")
	}
	if err := validateFilePath(path); err != nil {
		return "", err
	}
	return path, nil
}

func activityText(s *activity.Summary) []byte {
	var b bytes.Buffer
	layout := GetGlobalConfig().Output.TimestampFormat

	fmt.Fprintf(&b, "%s Activity: %d entries", GetEmoji("statistics"), s.Entries)
	if !s.First.IsZero() {
		fmt.Fprintf(&b, " from %s to %s", s.First.Local().Format(layout), s.Last.Local().Format(layout))
	}
	b.WriteString("\n")

	levels := make([]string, 0, len(s.ByLevel))
	for _, l := range s.Levels() {
		levels = append(levels, fmt.Sprintf("%s %d", l, s.ByLevel[l]))
	}
	if len(levels) > 0 {
		fmt.Fprintf(&b, "   Levels: %s\n", strings.Join(levels, ", "))
	}

	components := make([]string, 0, len(s.ByComponent))
	for c := range s.ByComponent {
		components = append(components, c)
	}
	sort.Strings(components)
	for i, c := range components {
		components[i] = fmt.Sprintf("%s %d", c, s.ByComponent[c])
	}
	if len(components) > 0 {
		fmt.Fprintf(&b, "   Components: %s\n", strings.Join(components, ", "))
	}
	fmt.Fprintf(&b, "   Requests: %d, failed %d (%.1f%%)\n\n", s.Requests, s.Failures, s.FailureRate())

	if len(s.Endpoints) > 0 {
		table := newRiskTable(&b, "Endpoint", "Requests", "Failed", "Avg", "P50", "P95", "Max")
		for _, ep := range s.Endpoints {
			table.Append([]string{
				ep.Path,
				strconv.Itoa(ep.Requests),
				strconv.Itoa(ep.Failures),
				millis(ep.Latency.Avg),
				millis(ep.Latency.P50),
				millis(ep.Latency.P95),
				millis(ep.Latency.Max),
			})
		}
		table.Render()
		b.WriteString("\n")
	}

	if len(s.Recent) > 0 {
		fmt.Fprintf(&b, "%s Recent problems\n", GetEmoji("warning"))
		for _, e := range s.Recent {
			writeEvent(&b, e)
		}
	}
	return b.Bytes()
}

func millis(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fms", v)
}

func writeEvent(w io.Writer, e activity.Event) {
	ts := "--:--:--"
	if !e.Time.IsZero() {
		ts = e.Time.Local().Format("15:04:05")
	}
	if e.Component != "" {
		fmt.Fprintf(w, "[%s] %s %s: %s\n", ts, e.Level, e.Component, e.Message)
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", ts, e.Level, e.Message)
}

func newActivityTailCommand(file *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the activity log and print new warnings and errors",
		Long: `Watch the activity log for writes and print new problem lines as other
attendsum processes log them. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := activityPath(*file)
			if err != nil {
				return err
			}
			t, err := openTail(path)
			if err != nil {
				return err
			}
			defer t.close()

			if isVerbose() {
				fmt.Fprintf(cmd.ErrOrStderr(), "Following %s\n", path)
			}
			return t.run(cmd.Context(), cmd.OutOrStdout(), all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "print every new line, not just warnings and errors")
	return cmd
}

// tail follows the end of one file
type tail struct {
	watcher *fsnotify.Watcher
	file    *os.File
}

func openTail(path string) (*tail, error) {
	cleanPath := filepath.Clean(path)

	// #nosec G304 - path comes from configuration or a flag
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to seek to end of file: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(cleanPath); err != nil {
		_ = w.Close()
		_ = f.Close()
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	return &tail{watcher: w, file: f}, nil
}

func (t *tail) close() {
	if err := t.watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
	if err := t.file.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close file: %v\n", err)
	}
}

func (t *tail) run(ctx context.Context, out io.Writer, all bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if err := t.flush(out, all); err != nil && isVerbose() {
				fmt.Fprintf(os.Stderr, "Error reading new lines: %v\n", err)
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
			}
		}
	}
}

// flush prints whatever was appended since the last read
func (t *tail) flush(out io.Writer, all bool) error {
	data, err := io.ReadAll(t.file)
	if err != nil {
		return err
	}
	events, err := activity.Parse(string(data))
	if err != nil {
		return err
	}
	for _, e := range events {
		if all || e.Problem() {
			writeEvent(out, e)
		}
	}
	return nil
}
