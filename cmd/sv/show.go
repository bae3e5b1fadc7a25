package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sonnes/sessionview/compact"
	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/render"
	jsonrender "github.com/sonnes/sessionview/render/json"
	"github.com/sonnes/sessionview/render/terminal"
	"github.com/sonnes/sessionview/subagent"
	"github.com/urfave/cli/v3"
)

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Render a session with its subagents expanded inline",
		ArgsUsage: "<session>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "agent",
				Usage: "Render this subagent of the session instead of the session itself",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Levels of subagents to expand (0 shows spawn lines only)",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "full",
				Usage: "Render complete messages as markdown and include tool results",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Replace file contents and tool output with line counts",
			},
			&cli.BoolFlag{
				Name:  "no-thinking",
				Usage: "Drop thinking blocks (implies --compact)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format: terminal, json",
				Value:   "terminal",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sessionID := cmd.Args().First()
			if sessionID == "" {
				return errors.New("session id is required")
			}
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(ctx)
			defer cancel()

			t, title, err := a.load(ctx, sessionID, cmd.String("agent"))
			if err != nil {
				return err
			}

			nodes, err := a.resolver.Expand(ctx, sessionID, t.Records, a.cfg.Matcher(), int(cmd.Int("depth")))
			if err != nil {
				return fmt.Errorf("expand subagents: %w", err)
			}

			stats := core.ComputeDiffStats(t.Records)
			if cmd.Bool("compact") || cmd.Bool("no-thinking") {
				c := compact.New(compact.Config{StripThinking: cmd.Bool("no-thinking")})
				if err := compactTree(c, t, nodes); err != nil {
					return fmt.Errorf("compact: %w", err)
				}
			}

			rnd, err := a.renderer(cmd.String("output"), renderOptions{
				full:  cmd.Bool("full"),
				title: title,
				stats: stats,
			})
			if err != nil {
				return err
			}
			if err := rnd.RenderTree(cmd.Root().Writer, t, nodes); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			return nil
		},
	}
}

// load returns the session's transcript, or one subagent's stream dressed
// as a transcript when agentID is set.
func (a *app) load(ctx context.Context, sessionID, agentID string) (*core.Transcript, string, error) {
	if agentID == "" {
		t, err := a.transcripts.Transcript(ctx, sessionID)
		return t, "", err
	}
	inv, err := a.resolver.Fetch(ctx, sessionID, agentID)
	if err != nil {
		return nil, "", err
	}
	title := "agent " + inv.AgentID
	if inv.Type != "" {
		title += " (" + inv.Type + ")"
	}
	return &core.Transcript{SessionID: sessionID, Records: inv.Records, Errors: inv.Errors}, title, nil
}

type renderOptions struct {
	full  bool
	title string
	stats *core.DiffStats
}

func (a *app) renderer(name string, opts renderOptions) (render.TreeRenderer, error) {
	switch name {
	case "terminal":
		r := terminal.New()
		r.Full = opts.full
		r.Title = opts.title
		r.Stats = opts.stats
		r.Match = a.cfg.Matcher()
		return r, nil
	case "json":
		r := jsonrender.New()
		r.Stats = opts.stats
		return r, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// compactTree compacts the transcript and every expanded subagent.
func compactTree(c core.Transformer, t *core.Transcript, nodes []*subagent.Node) error {
	if err := core.Chain(t.Records, c); err != nil {
		return err
	}
	var walk func([]*subagent.Node) error
	walk = func(ns []*subagent.Node) error {
		for _, n := range ns {
			if n.Subagent != nil {
				if err := core.Chain(n.Subagent.Records, c); err != nil {
					return fmt.Errorf("subagent %s: %w", n.Spawn.AgentID, err)
				}
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(nodes)
}
