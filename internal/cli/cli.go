package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/buildinfo"
	"github.com/matzehuels/reportflow/pkg/cache"
	"github.com/matzehuels/reportflow/pkg/config"
	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/export"
	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "reportflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level, logFormatFromEnv())}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Reportflow lays out and validates employee health reports",
		Long: `Reportflow turns a health report payload into a paginated, geometry-checked
page layout and exports accepted layouts as SVG, PDF, PNG or JSON.

A layout that overlaps or leaves the printable area is rejected with a list
of issues instead of being exported.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	registerCompletions(root)

	return root
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads the config once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.Logger.Debug("config loaded", "store", cfg.Store.Driver, "cache", cfg.Cache.Driver)
	c.config = cfg
	return cfg, nil
}

// =============================================================================
// Factories
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	ch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.KeyPrefix != "" {
		keyer = cache.NewPrefixedKeyer(cfg.Cache.KeyPrefix)
	}
	return pipeline.NewRunner(ch, keyer, c.Logger), nil
}

func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Driver {
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	case config.CacheNone:
		return cache.NewNullCache(), nil
	default:
		return cache.NewFileCache(cfg.Dir)
	}
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreMongo:
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.NewSQLiteStore(cfg.Path)
	}
}

// backend bundles what the report, batch and serve commands need.
type backend struct {
	Store    store.Store
	Runner   *pipeline.Runner
	Service  *store.Service
	Exporter *export.Exporter
}

func (b *backend) Close() {
	_ = b.Runner.Close()
	_ = b.Store.Close()
}

// openBackend opens the configured store and cache.
func (c *CLI) openBackend(ctx context.Context, noCache bool) (*backend, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	s, err := newStore(ctx, cfg.Store)
	if err != nil {
		_ = runner.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &backend{
		Store:    s,
		Runner:   runner,
		Service:  store.NewService(s, runner, c.Logger),
		Exporter: export.New(s, runner, c.Logger),
	}, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// runFlags are the pipeline options shared by layout and report create.
type runFlags struct {
	pageSize string
	intent   string
	variant  int
	style    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pageSize, "page-size", "", "page size: A4 (default), LETTER")
	cmd.Flags().StringVar(&f.intent, "intent", "", "intent: export (default), preview")
	cmd.Flags().IntVar(&f.variant, "variant", 0, "variant index (default: meta.variantIndex of the payload)")
	cmd.Flags().StringVar(&f.style, "style", "", "style preset: fresh, calm, focus (default: picked from the variant)")
}

// input builds a pipeline input, falling back to the configured layout
// defaults for options not given on the command line.
func (f *runFlags) input(cmd *cobra.Command, p content.Payload, cfg *config.Config) pipeline.Input {
	in := pipeline.Input{
		Payload:     p,
		PageSize:    firstNonEmpty(f.pageSize, cfg.Layout.PageSize),
		Intent:      firstNonEmpty(f.intent, cfg.Layout.Intent),
		StylePreset: firstNonEmpty(f.style, cfg.Layout.StylePreset),
	}
	if cmd.Flags().Changed("variant") {
		v := f.variant
		in.VariantIndex = &v
	}
	return in
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// openOutput opens path for writing; an empty path or "-" writes to stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
