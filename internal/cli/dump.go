package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/schema/openapi"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	As     string
	Out    string
	Expand []string
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the whole resolved inventory",
		Long: `Resolve every pending derivation and write all Main elements under a
single Main root element.

Examples:
  inventory dump --as yaml
  inventory dump --as cbor --out inventory.cbor
  inventory dump --expand en --expand fr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "xml", "encoding (xml|yaml|json|cbor)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().StringSliceVar(&opts.Expand, "expand", nil, "expand tagged elements for these tags first")
	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	inv, err := opts.open(cmd)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)
	for _, tag := range opts.Expand {
		added, err := inv.ExpandTagged(tag)
		if err != nil {
			return WrapExitError(ExitFailure, "expand "+tag, err)
		}
		f.VerboseLog("expanded %d elements for %s", added, tag)
	}

	raw, err := encodeElement(inv.Root(), opts.As)
	if err != nil {
		return err
	}
	if opts.Out == "" {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(opts.Out, raw, 0o644); err != nil {
		return WrapExitError(ExitFailure, "write "+opts.Out, err)
	}
	if f.JSON() {
		return f.Success(map[string]any{"path": opts.Out, "bytes": len(raw), "elements": inv.Len()})
	}
	f.VerboseLog("wrote %d bytes to %s", len(raw), opts.Out)
	return nil
}

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	OpenAPI bool
	Title   string
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarise element shapes",
		Long: `Summarise every element name in the resolved inventory: key attributes,
counts, attribute names and child element names. With --openapi an OpenAPI
3 document with one component schema per element name is printed.

Examples:
  inventory describe
  inventory describe --openapi --title Layouts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.OpenAPI, "openapi", false, "emit an OpenAPI document")
	cmd.Flags().StringVar(&opts.Title, "title", "Inventory", "OpenAPI info title")
	return cmd
}

func runDescribe(opts *DescribeOptions, cmd *cobra.Command) error {
	var extra []inventory.Option
	if opts.OpenAPI {
		extra = append(extra, openapi.Option(openapi.WithTitle(opts.Title, ""), openapi.WithMediaTypes("application/json", "application/cbor")))
	}
	inv, err := opts.open(cmd, extra...)
	if err != nil {
		return err
	}
	doc, err := inv.Describe()
	if err != nil {
		return WrapExitError(ExitFailure, "describe", err)
	}

	f := opts.formatter(cmd)
	if f.JSON() {
		return f.Success(doc)
	}
	descriptors, ok := doc.Document.([]inventory.ElementDescriptor)
	if !ok {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc.Document)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKEYS\tCOUNT\tTOP\tATTRIBUTES\tCHILDREN")
	for _, d := range descriptors {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, joinOrDash(d.Keys), strconv.Itoa(d.Count), strconv.Itoa(d.TopLevel),
			joinOrDash(d.Attributes), joinOrDash(d.Children))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if dups := inv.DuplicateKeys(); len(dups) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "duplicate suffixes: %s\n", joinOrDash(dups))
	}
	return nil
}
