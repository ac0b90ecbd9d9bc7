package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/cache"
	"github.com/matzehuels/reportflow/pkg/config"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout and artifact cache",
		Long: `Manage the layout and artifact cache.

The file driver keeps entries under the XDG cache directory (or cache.dir).
The redis driver keeps them in the configured instance, namespaced by
cache.key_prefix.`,
	}
	cmd.AddCommand(c.cacheClearCommand(), c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached layout result and artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			loc, err := locateCache(cfg.Cache)
			if err != nil {
				return err
			}
			n, err := loc.clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			if n == 0 {
				printInfo("Cache is empty")
			} else {
				printSuccess("Cleared %d cached entries", n)
			}
			printDetail("%s", loc)
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cache entries are kept",
		Long: `Print where cache entries are kept: a directory for the file driver,
the key patterns for the redis driver.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			loc, err := locateCache(cfg.Cache)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if loc.dir != "" {
				fmt.Fprintln(out, loc.dir)
				return nil
			}
			for _, p := range loc.patterns {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}

// cacheLocation says where a configured cache keeps its entries: a local
// directory, or key patterns on a Redis instance.
type cacheLocation struct {
	dir      string
	redisURL string
	patterns []string
}

func locateCache(cfg config.CacheConfig) (cacheLocation, error) {
	switch cfg.Driver {
	case config.CacheNone:
		return cacheLocation{}, fmt.Errorf("caching is disabled (cache driver %q)", cfg.Driver)
	case config.CacheRedis:
		if cfg.RedisURL == "" {
			return cacheLocation{}, fmt.Errorf("cache driver %q needs cache.redis_url", cfg.Driver)
		}
		return cacheLocation{redisURL: cfg.RedisURL, patterns: cache.Patterns(cfg.KeyPrefix)}, nil
	}
	dir := cfg.Dir
	if dir == "" {
		dir = config.CacheDir()
	}
	return cacheLocation{dir: dir}, nil
}

func (l cacheLocation) clear(ctx context.Context) (int, error) {
	if l.dir != "" {
		if _, err := os.Stat(l.dir); os.IsNotExist(err) {
			return 0, nil
		}
		fc, err := cache.NewFileCache(l.dir)
		if err != nil {
			return 0, err
		}
		defer fc.Close()
		return fc.Clear()
	}

	rc, err := cache.NewRedisCache(ctx, l.redisURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	total := 0
	for _, p := range l.patterns {
		n, err := rc.Clear(ctx, p)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (l cacheLocation) String() string {
	if l.dir != "" {
		return "Directory: " + l.dir
	}
	return "Redis keys: " + strings.Join(l.patterns, " ")
}
