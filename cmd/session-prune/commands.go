package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/filestore"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
	"github.com/tunzy-shop/tunzy-session/internal/platform/config"
	"github.com/tunzy-shop/tunzy-session/internal/platform/logging"
	"github.com/tunzy-shop/tunzy-session/internal/platform/version"
)

type rootOptions struct {
	dir     string
	verbose bool
	clock   clockwork.Clock
	store   *filestore.Store
}

func newRootCmd(clock clockwork.Clock) *cobra.Command {
	opts := &rootOptions{clock: clock}

	root := &cobra.Command{
		Use:          "session-prune",
		Short:        "Inspect and clean up WhatsApp session directories",
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if opts.verbose {
				level = "debug"
			}
			logging.InitLogger(level, "text")

			if opts.dir == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				opts.dir = cfg.SessionsRoot()
			}
			opts.store = filestore.NewStore(opts.dir, opts.clock)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "sessions directory (default from SESSIONS_DIR / RENDER)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(listCmd(opts), pruneCmd(opts))
	return root
}

func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List session directories, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := opts.store.List()
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), sessions, opts.clock.Now())
		},
	}
}

func pruneCmd(opts *rootOptions) *cobra.Command {
	var (
		olderThan     time.Duration
		includeLinked bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove session directories older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}

			sessions, err := opts.store.List()
			if err != nil {
				return err
			}

			stale := staleSessions(sessions, opts.clock.Now(), olderThan, includeLinked)
			slog.Info("Starting prune", "dir", opts.store.Root(), "total", len(sessions), "stale", len(stale), "dry_run", dryRun)

			removed := 0
			for _, s := range stale {
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "would remove %s\n", s.ID)
					continue
				}
				if err := opts.store.Remove(s.ID); err != nil {
					slog.Error("Failed to remove session", "session_id", s.ID, "error", err)
					continue
				}
				slog.Debug("Removed session", "session_id", s.ID, "linked", s.Linked)
				removed++
			}

			slog.Info("Prune complete", "removed", removed, "kept", len(sessions)-removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of a session to remove")
	cmd.Flags().BoolVar(&includeLinked, "include-linked", false, "also remove sessions that linked a device")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be removed without removing it")
	return cmd
}

// staleSessions picks sessions created before now-olderThan. Linked sessions hold
// working credentials and are only picked when includeLinked is set.
func staleSessions(sessions []domain.SessionMetadata, now time.Time, olderThan time.Duration, includeLinked bool) []domain.SessionMetadata {
	cutoff := now.Add(-olderThan)

	var out []domain.SessionMetadata
	for _, s := range sessions {
		if !s.CreatedAt.Before(cutoff) {
			continue
		}
		if s.Linked && !includeLinked {
			continue
		}
		out = append(out, s)
	}
	return out
}

func printSessions(w io.Writer, sessions []domain.SessionMetadata, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tAGE\tLINKED")
	for _, s := range sessions {
		mode := string(s.Mode)
		if mode == "" {
			mode = "-"
		}
		age := now.Sub(s.CreatedAt).Truncate(time.Second)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.ID, mode, age, s.Linked)
	}
	return tw.Flush()
}
