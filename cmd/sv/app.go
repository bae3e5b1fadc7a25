package main

import (
	"context"
	"fmt"

	"github.com/sonnes/sessionview/catalog"
	"github.com/sonnes/sessionview/config"
	"github.com/sonnes/sessionview/store"
	"github.com/sonnes/sessionview/subagent"
	"github.com/sonnes/sessionview/transcript"
	"github.com/urfave/cli/v3"
)

// storeFlags are shared by every command. Each one overrides the config
// file key of the same name.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to a YAML config file",
			Sources: cli.EnvVars("SV_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Object store: dir or s3",
			Sources: cli.EnvVars("SV_STORE"),
		},
		&cli.StringFlag{
			Name:    "dir",
			Usage:   "Session directory for the dir store (default: this project's ~/.claude/projects entry)",
			Sources: cli.EnvVars("SV_DIR"),
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "Bucket for the s3 store",
			Sources: cli.EnvVars("SV_BUCKET"),
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Region for the s3 store",
			Sources: cli.EnvVars("SV_REGION", "AWS_REGION"),
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "Custom endpoint for S3-compatible services",
			Sources: cli.EnvVars("SV_ENDPOINT"),
		},
		&cli.BoolFlag{
			Name:    "path-style",
			Usage:   "Use path-style bucket addressing",
			Sources: cli.EnvVars("SV_PATH_STYLE"),
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "Key prefix under which sessions are stored",
			Sources: cli.EnvVars("SV_PREFIX"),
		},
		&cli.StringSliceFlag{
			Name:    "redact",
			Usage:   "Redaction rules to apply. Example: --redact=secrets,pii",
			Sources: cli.EnvVars("SV_REDACT"),
		},
		&cli.BoolFlag{
			Name:  "no-redact",
			Usage: "Disable redaction of secrets and PII",
		},
		&cli.StringSliceFlag{
			Name:    "spawn-tool",
			Usage:   "Tool name that launches a subagent (repeatable)",
			Sources: cli.EnvVars("SV_SPAWN_TOOLS"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout for each store request",
			Sources: cli.EnvVars("SV_TIMEOUT"),
		},
	}
}

// loadConfig layers the config file, environment and flags over the
// defaults and validates the result.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}

	if cmd.IsSet("store") {
		cfg.Store = cmd.String("store")
	}
	if cmd.IsSet("dir") {
		cfg.Dir = cmd.String("dir")
	}
	if cmd.IsSet("bucket") {
		cfg.Bucket = cmd.String("bucket")
	}
	if cmd.IsSet("region") {
		cfg.Region = cmd.String("region")
	}
	if cmd.IsSet("endpoint") {
		cfg.Endpoint = cmd.String("endpoint")
	}
	if cmd.IsSet("path-style") {
		cfg.PathStyle = cmd.Bool("path-style")
	}
	if cmd.IsSet("prefix") {
		cfg.Prefix = cmd.String("prefix")
	}
	if cmd.IsSet("redact") {
		cfg.Redact = cmd.StringSlice("redact")
	}
	if cmd.Bool("no-redact") {
		cfg.Redact = []string{}
	}
	if cmd.IsSet("spawn-tool") {
		cfg.SpawnTools = cmd.StringSlice("spawn-tool")
	}
	if cmd.IsSet("timeout") {
		cfg.Timeout = cmd.Duration("timeout")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app holds the collaborators every command reads through, built once from
// the effective config.
type app struct {
	cfg         config.Config
	objects     store.Store
	catalog     *catalog.Resolver
	transcripts *transcript.Store
	resolver    *subagent.Resolver
}

func newApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openApp(ctx, cfg)
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	objects, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	ts, err := cfg.Transformers()
	if err != nil {
		return nil, err
	}
	transcripts := transcript.New(objects, cfg.Prefix, transcript.WithTransformers(ts...))
	return &app{
		cfg:         cfg,
		objects:     objects,
		catalog:     catalog.New(objects, cfg.Prefix),
		transcripts: transcripts,
		resolver:    subagent.New(transcripts),
	}, nil
}

// withTimeout bounds one command's store work by the configured timeout.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// localBackend reads straight from the stores.
type localBackend struct {
	*catalog.Resolver
	*transcript.Store
}

func (a *app) backend() localBackend {
	return localBackend{Resolver: a.catalog, Store: a.transcripts}
}
