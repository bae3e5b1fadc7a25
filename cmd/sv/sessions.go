package main

import (
	"context"
	"fmt"

	jsonrender "github.com/sonnes/sessionview/render/json"
	"github.com/urfave/cli/v3"
)

func sessionsCmd() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List sessions, most recently modified first",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the catalog as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(ctx)
			defer cancel()

			sessions, err := a.catalog.ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			w := cmd.Root().Writer
			if cmd.Bool("json") {
				return jsonrender.New().Encode(w, sessions)
			}
			for _, s := range sessions {
				if _, err := fmt.Fprintf(w, "%s  %s\n", s.LastModified, s.ID); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
