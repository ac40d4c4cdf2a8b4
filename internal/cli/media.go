package cli

import (
	"fmt"

	"github.com/keshon/taint-fm/internal/logging"
	"github.com/keshon/taint-fm/internal/music/janitor"
	"github.com/keshon/taint-fm/internal/music/queue"
	"github.com/keshon/taint-fm/internal/music/resolver"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <locator>",
		Short: "List the tracks a URL or query expands to",
		Long: `Runs the same flat resolution as the play command: playlists are
expanded, unavailable entries dropped, nothing is downloaded.

Examples:
  taint-fm resolve "https://www.youtube.com/playlist?list=PL..."
  taint-fm resolve "lofi hip hop"`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	res, err := newResolver(cfg, logging.Component(log, "resolver"))
	if err != nil {
		return err
	}

	entries, err := res.ResolveFlat(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	tracks := resolver.Tracks(entries, log)

	out := cmd.OutOrStdout()
	if len(tracks) == 0 {
		warnColor.Fprintf(out, "Nothing playable found for %s\n", args[0])
		return nil
	}
	for i, t := range tracks {
		fmt.Fprintf(out, "%3d. ", i+1)
		titleColor.Fprint(out, t.Title)
		fmt.Fprint(out, "  ")
		dimColor.Fprintln(out, t.Locator)
	}
	okColor.Fprintf(out, "%d track(s)\n", len(tracks))
	return nil
}

func newFetchCmd() *cobra.Command {
	var keep bool
	c := &cobra.Command{
		Use:   "fetch <locator>",
		Short: "Fully resolve a single item and print the playable reference",
		Long: `Resolves one item the way the bot does right before playing it. In
download mode the file is deleted again on exit unless --keep is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], keep)
		},
	}
	c.Flags().BoolVar(&keep, "keep", false, "keep the downloaded file")
	return c
}

func runFetch(cmd *cobra.Command, locator string, keep bool) error {
	res, err := newResolver(cfg, logging.Component(log, "resolver"))
	if err != nil {
		return err
	}

	jan := janitor.New(logging.Component(log, "janitor"))
	playable, err := res.ResolveForPlayback(cmd.Context(), queue.Track{Title: locator, Locator: locator})
	if err != nil {
		return err
	}
	if playable.Local && !keep {
		jan.Register(playable.Locator)
		defer jan.Release(playable.Locator)
	}

	out := cmd.OutOrStdout()
	title := playable.Title
	if title == "" {
		title = locator
	}
	titleColor.Fprintln(out, title)
	kind := "stream"
	if playable.Local {
		kind = "file"
	}
	fmt.Fprintf(out, "%s: %s\n", kind, playable.Locator)
	if playable.Local && !keep {
		dimColor.Fprintln(out, "(deleted on exit, use --keep to retain)")
	}
	return nil
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete playback files left behind in the scratch directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jan := janitor.New(logging.Component(log, "janitor"))
			n, err := jan.SweepStale(cfg.ScratchDir)
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Removed %d file(s) from %s\n", n, cfg.ScratchDir)
			return nil
		},
	}
}
