package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/server"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the session catalog and transcripts as a JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on",
				Sources: cli.EnvVars("SV_ADDR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			addr := a.cfg.Addr
			if cmd.IsSet("addr") {
				addr = cmd.String("addr")
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("opening store", "store", a.cfg.Store, "dir", a.cfg.Dir, "bucket", a.cfg.Bucket, "prefix", a.cfg.Prefix, "redact", a.cfg.Redact)
			return server.New(a.catalog, a.transcripts).ListenAndServe(ctx, addr)
		},
	}
}
