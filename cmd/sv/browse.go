package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/client"
	"github.com/sonnes/sessionview/store/dir"
	"github.com/sonnes/sessionview/tui"
	"github.com/urfave/cli/v3"
)

func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse sessions interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Read from a running sv serve at this URL instead of the store",
				Sources: cli.EnvVars("SV_SERVER"),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload when session files change (dir store only)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file; they are discarded otherwise",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			closeLog, err := redirectLog(cmd.String("log-file"))
			if err != nil {
				return err
			}
			defer closeLog()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tcfg := tui.Config{Match: cfg.Matcher(), Timeout: cfg.Timeout}

			if url := cmd.String("server"); url != "" {
				if cmd.Bool("watch") {
					return errors.New("--watch reads the local store and cannot be combined with --server")
				}
				c, err := client.New(url)
				if err != nil {
					return err
				}
				tcfg.Backend = c
				return tui.Run(ctx, tcfg)
			}

			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			tcfg.Backend = a.backend()
			if cmd.Bool("watch") {
				ds, ok := a.objects.(*dir.Store)
				if !ok {
					return fmt.Errorf("--watch needs the dir store, not %s", cfg.Store)
				}
				tcfg.Watch = ds.Watch
			}
			return tui.Run(ctx, tcfg)
		},
	}
}

// redirectLog keeps log output off the alternate screen.
func redirectLog(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
