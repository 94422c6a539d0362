package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/marbeck/vellum/internal"
	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/mcpserver"
	"github.com/marbeck/vellum/internal/rollup"
	"github.com/marbeck/vellum/internal/textgen"
	pkgconfig "github.com/marbeck/vellum/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	blobs, err := blob.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	idx, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer idx.Close()

	return mcpserver.New(blobs, idx).ServeStdio()
}

// runRollup executes a one-shot daily or weekly rollup, defaulting to
// yesterday / the previous week when no date flag is given.
func runRollup(ctx context.Context, cmd *cli.Command, weekly bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	blobs, err := blob.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	idx, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer idx.Close()

	gen := textgen.NewClient(cfg.Textgen.BaseURL, cfg.Textgen.Model, cfg.Textgen.Timeout)
	rollups := rollup.New(idx, blobs, gen)

	target := time.Now().UTC().AddDate(0, 0, -1)
	if weekly {
		target = time.Now().UTC().AddDate(0, 0, -7)
	}
	if raw := cmd.String("date"); raw != "" {
		target, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	var key string
	if weekly {
		key, err = rollups.Weekly(ctx, target)
	} else {
		key, err = rollups.Daily(ctx, target)
	}
	if err != nil {
		return err
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "no documents in window, nothing generated")
		return nil
	}
	fmt.Println(key)
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	dateFlag := &cli.StringFlag{
		Name:  "date",
		Usage: "Target date (YYYY-MM-DD); defaults to the previous period",
	}

	cmd := &cli.Command{
		Name:   "vellum",
		Usage:  "Markdown note metadata pipeline: extraction, cross-reference indices, and generated rollup documents",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, vault watcher, and rollup scheduler",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve index query tools over MCP stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:  "rollup",
				Usage: "Generate a rollup document",
				Commands: []*cli.Command{
					{
						Name:  "daily",
						Usage: "Generate the daily summary",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return runRollup(ctx, cmd, false)
						},
						Flags: []cli.Flag{configFlag, dateFlag},
					},
					{
						Name:  "weekly",
						Usage: "Generate the weekly report",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return runRollup(ctx, cmd, true)
						},
						Flags: []cli.Flag{configFlag, dateFlag},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
