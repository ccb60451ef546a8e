package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/twinfer/ldquad"
	"github.com/twinfer/ldquad/jsonld"
	"github.com/twinfer/ldquad/rdf"
)

// Dump formats.
const (
	formatJSONLD = "jsonld"
	formatNQuads = "nquads"
	formatJSON   = "json"
)

// loadCommand creates the load command.
func (c *CLI) loadCommand() *cobra.Command {
	var (
		base   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "load [file]",
		Short: "Load a JSON-LD or N-Quads document into the quad store",
		Long: `Load expands a JSON-LD document (or parses N-Quads) and adds its quads to
the configured store. Blank nodes get labels unique to this load. Prefixes
of the document's context are registered for later auto-compaction.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("base") {
				c.cfg.Base = base
			}
			if format == "" {
				format = formatJSONLD
				if len(args) > 0 && isNQuads(args[0]) {
					format = formatNQuads
				}
			}

			ds := rdf.NewDataset()
			issuer := rdf.NewIssuer(loadPrefix())
			switch format {
			case formatJSONLD:
				doc, docBase, err := c.readDocument(cmd, args)
				if err != nil {
					return err
				}
				opts := append(c.expandOptions(docBase), jsonld.WithIssuer(issuer))
				if err := jsonld.Expand(cmd.Context(), doc, ds, opts...); err != nil {
					return err
				}
			case formatNQuads:
				r, _, err := openInput(cmd, args)
				if err != nil {
					return err
				}
				defer r.Close()
				if err := rdf.ReadNQuadsInto(r, rdf.RelabelSink(ds, issuer)); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown input format %q", format)
			}

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			p := newProgress(c.Logger)
			before := store.Len()
			if err := store.Merge(ds); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Loaded %d new quads", store.Len()-before))
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base IRI for relative references (default: the file's URL)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: jsonld or nquads (default: by file extension)")
	return cmd
}

// loadPrefix returns a blank node label prefix unique to one load, so the
// blank nodes of separately loaded documents never meet in the store.
func loadPrefix() string {
	return "b" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// dumpCommand creates the dump command.
func (c *CLI) dumpCommand() *cobra.Command {
	var (
		flags   compactFlags
		format  string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the quad store as JSON-LD, N-Quads or a JSON dump",
		Long: `Dump writes the contents of the configured store. The json format is the
store's own dump format, readable by restore. --subject limits jsonld and
nquads output to one subject and the blank nodes it reaches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, c); err != nil {
				return err
			}
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var src rdf.Source = store
			if subject != "" {
				term, err := ldquad.ParseTerm(subject)
				if err != nil {
					return fmt.Errorf("invalid --subject: %w", err)
				}
				if !rdf.IsResource(term) {
					return fmt.Errorf("invalid --subject: %v is not an IRI or blank node", term)
				}
				ds, err := describe(store, term)
				if err != nil {
					return err
				}
				src = ds
			}

			switch format {
			case formatJSONLD:
				return c.writeCompacted(cmd, src)
			case formatNQuads:
				quads, err := allQuads(store, src)
				if err != nil {
					return err
				}
				return rdf.WriteNQuads(cmd.OutOrStdout(), quads)
			case formatJSON:
				if subject != "" {
					return fmt.Errorf("--subject does not apply to the json format")
				}
				_, err := store.WriteTo(cmd.OutOrStdout())
				return err
			}
			return fmt.Errorf("unknown output format %q", format)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", formatJSONLD, "output format: jsonld, nquads or json")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "only describe this subject, in N-Triples syntax (<iri> or _:label)")
	return cmd
}

// restoreCommand creates the restore command.
func (c *CLI) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [file]",
		Short: "Read a JSON dump written by dump --format json into the quad store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer r.Close()

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			p := newProgress(c.Logger)
			n, err := store.ReadFrom(r)
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Restored %d bytes", n))
			return nil
		},
	}
}

// describe copies the edges of subject, and of the blank nodes reachable
// from it, out of every graph of store. The store's prefixes are copied too.
func describe(store *ldquad.QuadStoreDB, subject rdf.Term) (*rdf.Dataset, error) {
	ds := rdf.NewDataset()
	for prefix, ns := range store.Prefixes() {
		ds.Bind(prefix, ns)
	}

	for _, g := range append([]rdf.Term{nil}, store.Graphs()...) {
		visited := map[rdf.Term]bool{subject: true}
		queue := []rdf.Term{subject}
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			for _, po := range store.PredicateObjects(g, s) {
				if err := ds.Add(rdf.Quad{Subject: s, Predicate: po.Predicate, Object: po.Object, Graph: g}); err != nil {
					return nil, err
				}
				if b, ok := po.Object.(rdf.BlankNode); ok && !visited[b] {
					visited[b] = true
					queue = append(queue, b)
				}
			}
		}
	}
	return ds, nil
}

// allQuads lists the quads of src: straight from the store when src is the
// store, from the dataset otherwise.
func allQuads(store *ldquad.QuadStoreDB, src rdf.Source) ([]rdf.Quad, error) {
	if ds, ok := src.(*rdf.Dataset); ok {
		return ds.Quads(), nil
	}
	var quads []rdf.Quad
	err := store.EachQuad(func(q rdf.Quad) error {
		quads = append(quads, q)
		return nil
	})
	return quads, err
}
