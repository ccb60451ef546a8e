// Package cli implements the ldquad command-line interface.
//
// # Commands
//
//   - expand: JSON-LD document to N-Quads
//   - compact: N-Quads to JSON-LD document
//   - load: expand a document into the configured quad store
//   - dump: write the store as JSON-LD, N-Quads or a JSON dump
//   - restore: read a JSON dump back into the store
//
// Settings come from the layered YAML configuration (see internal/config);
// command flags override them. All commands support --verbose (-v) for
// debug-level logging.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/twinfer/ldquad"
	"github.com/twinfer/ldquad/internal/config"
	"github.com/twinfer/ldquad/jsonld"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	cfg        *config.Config
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// newLogger creates a new logger with timestamp formatting.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ldquad",
		Short:         "ldquad converts between JSON-LD documents and RDF quads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cfg, err := config.NewLoader(c.Logger).Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.ProjectConfigFile+" in the working directory or a parent)")

	root.AddCommand(c.expandCommand())
	root.AddCommand(c.compactCommand())
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.dumpCommand())
	root.AddCommand(c.restoreCommand())
	return root
}

// openInput opens the file named by the first argument, or stdin when
// there is none or it is "-". The returned name is empty for stdin.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", err
	}
	return f, args[0], nil
}

// readDocument decodes the JSON-LD input and returns it with its base IRI:
// the configured base, or the file's own URL.
func (c *CLI) readDocument(cmd *cobra.Command, args []string) (any, string, error) {
	r, name, err := openInput(cmd, args)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	doc, err := jsonld.DecodeDocument(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}
	base := c.cfg.Base
	if base == "" && name != "" {
		if abs, err := filepath.Abs(name); err == nil {
			base = "file://" + filepath.ToSlash(abs)
		}
	}
	return doc, base, nil
}

func (c *CLI) expandOptions(base string) []jsonld.Option {
	return []jsonld.Option{
		jsonld.WithBase(base),
		jsonld.WithResolver(c.cfg.Resolver()),
		jsonld.WithLogger(c.Logger),
	}
}

func (c *CLI) compactOptions() ([]jsonld.Option, error) {
	opts := []jsonld.Option{
		jsonld.WithBase(c.cfg.Base),
		jsonld.WithResolver(c.cfg.Resolver()),
		jsonld.WithLogger(c.Logger),
		jsonld.UseNativeTypes(c.cfg.NativeTypes),
		jsonld.UseRDFType(c.cfg.RDFType),
		jsonld.AutoCompact(c.cfg.AutoCompact),
		jsonld.WithEmbed(c.cfg.EmbedPolicy()),
	}
	if c.cfg.Context == "" {
		return opts, nil
	}
	source, err := contextSource(c.cfg.Context)
	if err != nil {
		return nil, err
	}
	return append(opts, jsonld.WithContext(source)), nil
}

// contextSource reads ref as a local context file, or passes it on as a
// context IRI for the resolver when no such file exists.
func contextSource(ref string) (any, error) {
	f, err := os.Open(ref)
	if os.IsNotExist(err) {
		return ref, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := jsonld.DecodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read context %s: %w", ref, err)
	}
	if m, ok := doc.(map[string]any); ok {
		if inner, ok := m["@context"]; ok {
			return inner, nil
		}
	}
	return doc, nil
}

// openStore opens the configured quad store.
func (c *CLI) openStore() (*ldquad.QuadStoreDB, error) {
	opts := []ldquad.StoreOption{ldquad.WithLogger(c.Logger)}
	switch c.cfg.Store.Driver {
	case config.DriverPostgres:
		return ldquad.NewQuadStorePostgreSQL(c.cfg.Store.DSN, opts...)
	case config.DriverMemory:
		return ldquad.NewQuadStoreSQLite(":memory:", opts...)
	default:
		return ldquad.NewQuadStoreSQLite(c.cfg.Store.DSN, opts...)
	}
}

// isNQuads reports whether name looks like an N-Quads or N-Triples file.
func isNQuads(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".nq", ".nt", ".nquads":
		return true
	}
	return false
}
