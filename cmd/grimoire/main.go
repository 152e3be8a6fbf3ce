package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/grimoire/internal"
	"github.com/starford/grimoire/internal/search"
	pkgconfig "github.com/starford/grimoire/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Info("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Build(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app build error: %w", err)
	}
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
		if err := cfg.App.Validate(); err != nil {
			return fmt.Errorf("invalid port: %w", err)
		}
	}
	if err := internal.Serve(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func query(ctx context.Context, cmd *cli.Command) error {
	q := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(q) == "" {
		return errors.New("search: QUERY is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	results, err := internal.Search(ctx, q, int(cmd.Int("limit")), internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.Root().Writer, "no results")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(cmd.Root().Writer, "%6.1f  %-40s  %s\n", r.Score, r.Record.Title, r.Record.Path)
		if r.Snippet != "" {
			fmt.Fprintf(cmd.Root().Writer, "        %s\n", r.Snippet)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "grimoire",
		Usage: "Static site generator for Obsidian campaign vaults",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "grimoire.yaml",
				Value:       "grimoire.yaml",
				Sources:     cli.EnvVars("GRIMOIRE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Generate the site into the output directory",
				Action: build,
			},
			{
				Name:   "serve",
				Usage:  "Build, serve and rebuild the site on vault changes",
				Action: serve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port, overrides app.http.port",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Query the search index of a built site",
				ArgsUsage: "QUERY",
				Action:    query,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultLimit,
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
