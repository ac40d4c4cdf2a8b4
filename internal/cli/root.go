// Package cli is the operator command line: it resolves and fetches media
// the way the bot does, and cleans the scratch directory.
package cli

import (
	"fmt"
	"os"

	"github.com/keshon/taint-fm/internal/config"
	"github.com/keshon/taint-fm/internal/logging"
	"github.com/keshon/taint-fm/internal/music/resolver"
	"github.com/keshon/taint-fm/internal/version"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool

	cfg *config.Config
	log zerolog.Logger

	titleColor = color.New(color.FgHiWhite, color.Bold)
	dimColor   = color.New(color.FgHiBlack)
	okColor    = color.New(color.FgHiGreen)
	warnColor  = color.New(color.FgHiYellow)
)

// newResolver builds the resolver stack from the loaded configuration
var newResolver = func(cfg *config.Config, log zerolog.Logger) (resolver.Resolver, error) {
	res, _, err := resolver.Build(resolver.Settings{
		Backends:   cfg.Resolvers,
		ScratchDir: cfg.ScratchDir,
		Mode:       cfg.Mode(),
		Proxy:      cfg.Proxy,
		Retry: resolver.RetryOptions{
			FlatTimeout:     cfg.ResolveTimeout,
			PlaybackTimeout: cfg.DownloadTimeout,
			Attempts:        cfg.ResolveAttempts,
			Rate:            cfg.ResolveRate,
		},
	}, log)
	return res, err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taint-fm",
		Short: "Operator tools for the taint-fm music bot",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.AddCommand(newResolveCmd(), newFetchCmd(), newSweepCmd(), newVersionCmd())
	return root
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, _, err = logging.Setup(logging.Options{Level: level, Console: cmd.ErrOrStderr()})
	return err
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
