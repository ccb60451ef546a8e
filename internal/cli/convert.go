package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twinfer/ldquad/jsonld"
	"github.com/twinfer/ldquad/rdf"
)

// compactFlags holds the flags shared by compact and dump. Set flags
// override the configuration.
type compactFlags struct {
	context     string
	nativeTypes bool
	rdfType     bool
	autoCompact bool
	embed       string
	indent      string
}

func (f *compactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.context, "context", "c", "", "context file or IRI used for compaction")
	cmd.Flags().BoolVar(&f.nativeTypes, "native-types", false, "write integers, doubles and booleans as JSON values")
	cmd.Flags().BoolVar(&f.rdfType, "rdf-type", false, "keep rdf:type as a property instead of @type")
	cmd.Flags().BoolVar(&f.autoCompact, "auto", false, "derive a context from the source's prefixes")
	cmd.Flags().StringVar(&f.embed, "embed", "", "blank node embedding: never or single")
	cmd.Flags().StringVar(&f.indent, "indent", "", "indentation of the output; empty writes one line")
}

// apply copies the flags the user set into c's configuration.
func (f *compactFlags) apply(cmd *cobra.Command, c *CLI) error {
	flags := cmd.Flags()
	if flags.Changed("context") {
		c.cfg.Context = f.context
	}
	if flags.Changed("native-types") {
		c.cfg.NativeTypes = f.nativeTypes
	}
	if flags.Changed("rdf-type") {
		c.cfg.RDFType = f.rdfType
	}
	if flags.Changed("auto") {
		c.cfg.AutoCompact = f.autoCompact
	}
	if flags.Changed("embed") {
		c.cfg.Embed = f.embed
	}
	if flags.Changed("indent") {
		c.cfg.Indent = f.indent
	}
	return c.cfg.Validate()
}

// expandCommand creates the expand command.
func (c *CLI) expandCommand() *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "expand [file]",
		Short: "Expand a JSON-LD document into N-Quads",
		Long:  `Expand reads a JSON-LD document from file (or stdin) and writes its quads as N-Quads.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("base") {
				c.cfg.Base = base
			}
			doc, docBase, err := c.readDocument(cmd, args)
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			ds := rdf.NewDataset()
			if err := jsonld.Expand(cmd.Context(), doc, ds, c.expandOptions(docBase)...); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Expanded %d quads", ds.Len()))
			return rdf.WriteNQuads(cmd.OutOrStdout(), ds.Quads())
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base IRI for relative references (default: the file's URL)")
	return cmd
}

// compactCommand creates the compact command.
func (c *CLI) compactCommand() *cobra.Command {
	var flags compactFlags

	cmd := &cobra.Command{
		Use:   "compact [file]",
		Short: "Compact N-Quads into a JSON-LD document",
		Long:  `Compact reads N-Quads from file (or stdin) and writes them as a JSON-LD document.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, c); err != nil {
				return err
			}
			r, _, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer r.Close()

			ds := rdf.NewDataset()
			if err := rdf.ReadNQuadsInto(r, ds); err != nil {
				return err
			}
			return c.writeCompacted(cmd, ds)
		},
	}
	flags.register(cmd)
	return cmd
}

// writeCompacted compacts src with the configured options and writes the
// document to the command's output.
func (c *CLI) writeCompacted(cmd *cobra.Command, src rdf.Source) error {
	opts, err := c.compactOptions()
	if err != nil {
		return err
	}
	p := newProgress(c.Logger)
	doc, err := jsonld.Compact(cmd.Context(), src, opts...)
	if err != nil {
		return err
	}
	p.done("Compacted document")
	return jsonld.EncodeDocument(cmd.OutOrStdout(), doc, c.cfg.Indent)
}
