package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/service"
	"github.com/garyjia/assessment-bulk/internal/config"
	"github.com/garyjia/assessment-bulk/internal/container"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
	"github.com/garyjia/assessment-bulk/pkg/utils"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "bulkctl",
		Short:         "Bulk assessment completion from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		gridCmd(opts),
		exportCmd(opts),
		saveCmd(opts),
		completeCmd(opts),
		historyCmd(opts),
	)
	return root
}

// withContainer loads the configuration, starts the application container
// and runs fn with it
func withContainer(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, c *container.Container) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := utils.NewCLILogger(opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close container", zap.Error(err))
		}
	}()

	return fn(ctx, c)
}

// loadSession opens a session holding the given assessments
func loadSession(ctx context.Context, c *container.Container, args []string) (*service.CompletionService, error) {
	ids, err := parseIDs(args)
	if err != nil {
		return nil, err
	}
	session := c.Sessions().Create()
	if err := session.Load(ctx, ids, nil); err != nil {
		return nil, err
	}
	return session, nil
}

func gridCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grid <assessment-id>...",
		Short: "Show assessments as a completion grid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, opts, func(ctx context.Context, c *container.Container) error {
				session, err := loadSession(ctx, c, args)
				if err != nil {
					return err
				}
				renderGrid(cmd.OutOrStdout(), session.Snapshot().Grid)
				return nil
			})
		},
	}
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <assessment-id>...",
		Short: "Export the completion grid as a spreadsheet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, opts, func(ctx context.Context, c *container.Container) error {
				session, err := loadSession(ctx, c, args)
				if err != nil {
					return err
				}
				view := session.Snapshot().Grid

				if out == "" {
					path, err := c.Exporter().Export(ctx, session.ID(), view)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), c.FileStorage().GetFullPath(path))
					return nil
				}

				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := c.Exporter().Write(f, view); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, the export directory when empty")
	return cmd
}

func saveCmd(opts *rootOptions) *cobra.Command {
	var answers []string
	cmd := &cobra.Command{
		Use:   "save <assessment-id>...",
		Short: "Save answers in bulk without completing",
		Long: `Save answers in bulk without completing.

Answers are given as --set <assessment-id>:<attribute-index>=<json value>,
for example --set 12:0='"Effective"'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			return withContainer(cmd, opts, func(ctx context.Context, c *container.Container) error {
				session, err := loadSession(ctx, c, args)
				if err != nil {
					return err
				}
				for _, e := range edits {
					if err := session.ChangeValue(ctx, e.assessmentID, e.index, e.value); err != nil {
						return fmt.Errorf("assessment %d attribute %d: %w", e.assessmentID, e.index, err)
					}
				}

				watcher := watchOutcomes(c.Dispatcher(), session.ID())
				defer watcher.stop()

				sub, err := session.SaveAnswers(ctx)
				if err != nil {
					return err
				}
				return waitForOutcome(ctx, cmd, c, watcher, session, sub)
			})
		},
	}
	cmd.Flags().StringArrayVar(&answers, "set", nil, "answer as <assessment-id>:<attribute-index>=<json value> (repeatable)")
	return cmd
}

func completeCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "complete <assessment-id>...",
		Short: "Complete the ready assessments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, opts, func(ctx context.Context, c *container.Container) error {
				session, err := loadSession(ctx, c, args)
				if err != nil {
					return err
				}
				renderGrid(cmd.OutOrStdout(), session.Snapshot().Grid)

				watcher := watchOutcomes(c.Dispatcher(), session.ID())
				defer watcher.stop()

				confirmer := newStdinConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), yes)
				sub, err := session.Complete(ctx, confirmer)
				if err != nil {
					return err
				}
				return waitForOutcome(ctx, cmd, c, watcher, session, sub)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "complete without asking")
	return cmd
}

// waitForOutcome blocks until the background task of sub finishes and
// prints the notices of the session
func waitForOutcome(ctx context.Context, cmd *cobra.Command, c *container.Container, watcher *outcomeWatcher, session *service.CompletionService, sub *service.Submission) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Task %s enqueued for %d assessment(s)\n", sub.TaskID, sub.RowCount)

	timeout := c.Config().Tracker.TaskTimeout + c.Config().Tracker.PollInterval
	outcome, err := watcher.wait(ctx, sub.TaskID, timeout)
	if err != nil {
		return err
	}

	for _, msg := range c.Messages().Drain(session.ID()) {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", msg.Level, msg.Text)
	}
	if outcome == event.TypeBulkFailed {
		return fmt.Errorf("task %s failed", sub.TaskID)
	}
	return nil
}

func historyCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent bulk operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, opts, func(ctx context.Context, c *container.Container) error {
				var (
					list []*entity.Operation
					err  error
				)
				if sessionID != "" {
					list, err = c.History().ForSession(ctx, sessionID)
				} else {
					list, err = c.History().Recent(ctx, limit)
				}
				if err != nil {
					return err
				}
				renderOperations(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of operations")
	cmd.Flags().StringVar(&sessionID, "session", "", "only operations of this session")
	return cmd
}

// parseIDs accepts ids as separate arguments or comma separated
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid assessment id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if err := utils.ValidateIDs(ids); err != nil {
		return nil, err
	}
	return ids, nil
}
