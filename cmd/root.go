package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/pipeline"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-dedup.git/settings"
	"github.com/spf13/cobra"
)

// flags shared by every command
type globalFlags struct {
	configPath  string
	logLevel    string
	metricsAddr string
	json        bool
}

// newRootCmd builds the command tree. A fresh tree per run keeps flag values from leaking between runs.
func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "azul-dedup",
		Short: "Find and remove duplicated SMF records",
		Long: `Finds SMF records that were collected more than once.

'split' copies a file of SMF records with duplicates removed and counts the
duplicates by record type.

'report-dups' reads one or more files and reports the systems and minutes where
duplicate records are at least as common as unique records, which usually means
data was transmitted or loaded twice.

Settings may be given in a yaml file with --config, or as environment variables
such as 'DD.INDEX.STRENGTH=strong' or 'DD__WORKERS__COUNT=4'.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := st.Load(g.configPath); err != nil {
				return &pipeline.UsageError{Msg: err.Error()}
			}
			if cmd.Flags().Changed("log-level") {
				st.Settings.LogLevel = g.logLevel
				st.SetLogLevel(g.logLevel)
			}
			if cmd.Flags().Changed("metrics-addr") {
				st.Settings.MetricsAddr = g.metricsAddr
			}
			if st.Settings.MetricsAddr != "" {
				go prom.StartStandalonePromServer(st.Settings.MetricsAddr)
			}
			st.OpenFileLoggers()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			st.CloseFileLoggers()
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "yaml file with settings")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&g.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	rootCmd.PersistentFlags().BoolVar(&g.json, "json", false, "print results as json")

	rootCmd.AddCommand(newSplitCmd(g))
	rootCmd.AddCommand(newReportDupsCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	executed, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	// cobra skips post run hooks when a command fails
	st.CloseFileLoggers()
	if executed == nil {
		executed = rootCmd
	}

	var usage *pipeline.UsageError
	var sourceErr *pipeline.SourceError
	var sinkErr *pipeline.SinkError
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "Interrupted:", err)
	case errors.As(err, &sourceErr), errors.As(err, &sinkErr):
		fmt.Fprint(stderr, executed.UsageString())
		fmt.Fprintln(stderr, "\nError:", err)
	case errors.As(err, &usage):
		fmt.Fprintln(stderr, "Error:", usage.Msg)
		fmt.Fprint(stderr, executed.UsageString())
	default:
		// argument and flag errors from cobra
		fmt.Fprintln(stderr, "Error:", err)
		fmt.Fprint(stderr, executed.UsageString())
	}
	return 1
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
