package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newRootCmd().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:  "sv",
		Usage: "Browse recorded agent sessions and drill into their subagents",
		Description: `Reads Claude Code session transcripts from a local project directory
or an S3-compatible bucket. Settings come from, lowest first: built-in
defaults, the --config file, SV_* environment variables, and flags.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log level: debug, info, warn, error",
				Value: "error",
			},
		}, storeFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			sessionsCmd(),
			showCmd(),
			browseCmd(),
			configCmd(),
		},
	}
}
