package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/spf13/cobra"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/pkg/activity/usersink"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
	Events   bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload whenever source files change",
		Long: `Load the inventory and keep reloading it whenever a file in a source
directory or the user directory changes, until interrupted.

Examples:
  inventory watch
  inventory watch --debounce 1s --events`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "quiet period before reloading (default from config)")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "log inventory activity records")
	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	logger, err := opts.ensureLogger(cmd)
	if err != nil {
		return err
	}
	var extra []inventory.Option
	if opts.Events {
		extra = append(extra, inventory.WithActivityHooks(usersink.Hook{Sink: &logSink{logger: logger}}))
	}
	inv, err := opts.open(cmd, extra...)
	if err != nil {
		return err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = opts.config.Watch.Debounce
	}
	logger.Info("watching", "elements", inv.Len(), "debounce", debounce)
	if err := inv.Watch(cmd.Context(), debounce); err != nil && cmd.Context().Err() == nil {
		return WrapExitError(ExitFailure, "watch", err)
	}
	return nil
}

// logSink writes go-users activity records to the CLI logger.
type logSink struct {
	logger *log.Logger
}

func (s *logSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Info(record.Verb,
		"object", record.ObjectType,
		"id", record.ObjectID,
		"channel", record.Channel,
		"event", record.Data["event_id"],
	)
	return nil
}
