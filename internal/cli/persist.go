package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-inventory/internal/hydrate"
)

// NewPersistCommand creates the persist command.
func NewPersistCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "persist FILE",
		Short: "Save an element as a user override",
		Long: `Read one element from FILE (xml, yaml, json or cbor, chosen by
extension) and write it to its override file in the user directory. The
element replaces an earlier override of the same key from that file; a key
another file already overrides is rejected.

Examples:
  inventory persist normal.xml --user-dir ~/.config/layouts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			el, err := hydrate.NewDecoder().DecodeFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read "+args[0], err)
			}
			inv, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			if err := inv.PersistOverride(cmd.Context(), el); err != nil {
				return WrapExitError(ExitFailure, "persist", err)
			}
			key := inv.Keys().Of(el).String()
			f := rootOpts.formatter(cmd)
			if f.JSON() {
				return f.Success(map[string]any{"key": key})
			}
			return f.Success(fmt.Sprintf("persisted %s", key))
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete user override files",
		Long: `Delete the user override files of the user directory. Files of named
variants (names containing '_') are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			removed, err := inv.DeleteUserOverrides(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "reset", err)
			}
			f := rootOpts.formatter(cmd)
			if f.JSON() {
				return f.Success(map[string]any{"removed": removed})
			}
			if len(removed) == 0 {
				return f.Success("no user overrides")
			}
			return f.Success(removed)
		},
	}
}
