package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/element"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	As    string
	Store string // main | base | alteration
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get NAME [VALUE...]",
		Short: "Print one element by key",
		Long: `Print the element stored under NAME and its key attribute values.
Missing trailing values are treated as absent. Derivations resolve on first
request.

Examples:
  inventory get layout LexEntry detail Normal
  inventory get layout LexEntry detail Normal --store base --as yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, cmd, args)
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "xml", "element encoding (xml|yaml|json|cbor)")
	cmd.Flags().StringVar(&opts.Store, "store", "main", "store to read (main|base|alteration)")
	return cmd
}

func runGet(opts *GetOptions, cmd *cobra.Command, args []string) error {
	inv, err := opts.open(cmd)
	if err != nil {
		return err
	}
	name, values := args[0], args[1:]

	var (
		el *element.Element
		ok bool
	)
	switch opts.Store {
	case "main":
		el, ok = inv.Get(name, values...)
	case "base":
		el, ok = inv.GetBase(name, values...)
	case "alteration":
		el, ok = inv.GetAlteration(name, values...)
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown store %q: must be main, base or alteration", opts.Store))
	}
	if !ok {
		key := inv.Keys().Lookup(name, element.Values(values...)...)
		return NewExitError(ExitFailure, fmt.Sprintf("no %s element for %s", opts.Store, key))
	}

	f := opts.formatter(cmd)
	if f.JSON() {
		return f.Success(el)
	}
	raw, err := encodeElement(el, opts.As)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(raw)
	return err
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list NAME [VALUE...]",
		Short: "List elements matching a partial key",
		Long: `List every Main element named NAME whose leading key values match the
given ones. With no values all elements of that name are listed.

Examples:
  inventory list layout
  inventory list layout LexEntry detail`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			els := inv.GetAll(args[0], element.Values(args[1:]...)...)
			f := rootOpts.formatter(cmd)
			if f.JSON() {
				return f.Success(els)
			}
			return f.Success(elementLines(els))
		},
	}
}

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	Args map[string]string
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select EXPR",
		Short: "Find elements with a predicate expression",
		Long: `Evaluate EXPR against every element at any depth of the resolved
inventory and print those for which it is true. Each element is exposed as
name, attrs, children and text; key holds its key, depth its nesting below
the root and args the --arg values. attr(NAME), hasAttr(NAME) and
hasChild(NAME) inspect the element with the default engine.

Examples:
  inventory select 'name == "part" && attrs.visible == "false"'
  inventory select 'attrs.ref == args.ref' --arg ref=Senses`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := opts.open(cmd)
			if err != nil {
				return err
			}
			ctx := inventory.RuleContext{Args: map[string]any{}}
			for k, v := range opts.Args {
				ctx.Args[k] = v
			}
			els, err := inv.SelectWith(ctx, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "predicate failed", err)
			}
			f := opts.formatter(cmd)
			if f.JSON() {
				return f.Success(els)
			}
			return f.Success(elementLines(els))
		},
	}
	cmd.Flags().StringToStringVar(&opts.Args, "arg", nil, "predicate arguments (key=value)")
	return cmd
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace NAME [VALUE...]",
		Short: "Show where an element came from",
		Long: `Show the Main, Base and Alterations entries for a key together with the
source file and classification of each.

Examples:
  inventory trace layout LexEntry detail Brief
  inventory trace layout LexEntry detail Normal --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			trace := inv.Trace(args[0], args[1:]...)
			f := rootOpts.formatter(cmd)
			if f.JSON() {
				return f.Success(trace)
			}
			return writeTrace(cmd, trace)
		},
	}
}

func writeTrace(cmd *cobra.Command, trace inventory.Trace) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "key: %s\n", trace.Key)
	for _, layer := range trace.Layers {
		if !layer.Found {
			fmt.Fprintf(w, "%s\t-\t\t\n", layer.Store)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", layer.Store, layer.Kind, layer.Origin, layer.Value)
	}
	return w.Flush()
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}
