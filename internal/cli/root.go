// Package cli implements the inventory command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/internal/config"
)

// RootOptions holds global flags and the state PersistentPreRunE prepares.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
	Verbose    bool
	Dirs       []string
	UserDir    string

	config *config.Config
	logger *log.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the inventory CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported on stdout as a JSON envelope with --format json, otherwise on
// stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr}
		if !isValidFormat(f.Format) {
			f.Format = "text"
		}
		_ = f.Error(err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect layered configuration inventories",
		Long: `Load configuration elements from ordered source directories, apply
overrides and derivations, and query the resolved result.

Configuration is read from inventory.cue (or --config) and INVENTORY_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a CUE config file (default ./inventory.cue)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringSliceVar(&opts.Dirs, "dir", nil, "source directories, replacing the configured ones")
	cmd.PersistentFlags().StringVar(&opts.UserDir, "user-dir", "", "user override directory")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewPersistCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd, opts
}

func (o *RootOptions) load(ctx context.Context) error {
	cfg, _, err := config.Load(ctx, config.LoadOptions{FilePath: o.ConfigPath})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if len(o.Dirs) > 0 {
		cfg.Dirs = o.Dirs
	}
	if o.UserDir != "" {
		cfg.UserDir = o.UserDir
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	o.config = cfg
	return nil
}

// open builds the inventory described by the loaded configuration. Log
// output goes to cmd's error stream.
func (o *RootOptions) open(cmd *cobra.Command, extra ...inventory.Option) (*inventory.Inventory, error) {
	logger, err := o.ensureLogger(cmd)
	if err != nil {
		return nil, err
	}
	opts, err := o.config.Options(logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	inv, err := inventory.Open(cmd.Context(), append(opts, extra...)...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to load inventory", err)
	}
	return inv, nil
}

// ensureLogger builds the charmbracelet logger once, writing to cmd's error
// stream.
func (o *RootOptions) ensureLogger(cmd *cobra.Command) (*log.Logger, error) {
	if o.logger != nil {
		return o.logger, nil
	}
	if o.config == nil {
		return nil, NewExitError(ExitCommandError, "configuration not loaded")
	}
	logger, err := o.config.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.logger = logger
	return logger, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
