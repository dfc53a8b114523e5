package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/yildizm/AttendSum/internal/config"
	"github.com/yildizm/AttendSum/internal/emoji"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noEmoji   bool
	outputFmt string

	globalConfig *config.Config
)

// skipConfigAnnotation marks commands that must run even when the
// configuration does not load
const skipConfigAnnotation = "attendsum/skip-config"

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "attendsum",
		Short: "Student attendance analytics in the terminal",
		Long: `AttendSum is a terminal client for the attendance analytics service.

It signs you in, narrows the data by district, school and grade, shows
attendance tiers, AI-generated insights and risk breakdowns, and downloads
the service's Excel reports. Run "attendsum dashboard" for the interactive view.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}

			if _, skip := cmd.Annotations[skipConfigAnnotation]; skip {
				emoji.SetEmojiDisabled(noEmoji)
				return nil
			}

			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			globalConfig = cfg

			if !cmd.Flag("format").Changed && cfg.Output.DefaultFormat != "" {
				outputFmt = cfg.Output.DefaultFormat
			}
			if !cmd.Flag("verbose").Changed {
				verbose = cfg.Output.Verbose
			}
			emoji.SetEmojiDisabled(noEmoji || !cfg.Output.Emoji)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "format", "text", "output format (text, json, markdown, csv, table)")

	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newLogoutCommand())
	rootCmd.AddCommand(newWhoamiCommand())
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newOptionsCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newRisksCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newSimulateCommand())
	rootCmd.AddCommand(newBriefCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	rootCmd.AddCommand(newActivityCommand())
	rootCmd.AddCommand(newDashboardCommand())
	rootCmd.AddCommand(newListenCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Long:        "Display version number, build commit, date, and runtime information",
		Annotations: map[string]string{skipConfigAnnotation: ""},
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "AttendSum %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// GetGlobalConfig returns the loaded configuration, or the defaults when
// no command has loaded one
func GetGlobalConfig() *config.Config {
	if globalConfig == nil {
		return config.DefaultConfig()
	}
	return globalConfig
}

// Global helpers
func isVerbose() bool {
	return verbose
}

func getOutputFormat() string {
	return outputFmt
}

func isEmojiDisabled() bool {
	return noEmoji
}
