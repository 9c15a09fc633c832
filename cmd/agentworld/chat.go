package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agentworld/internal/config"
	"agentworld/internal/display"
	"agentworld/internal/store"
	"agentworld/internal/stream"
	"agentworld/internal/tui"
	"agentworld/internal/uilog"
	"agentworld/internal/world"
)

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	fs.Usage = func() { printChatUsage(os.Stderr) }
	configPath := fs.String("config", "", "path to agentworld.yaml")
	uiMode := fs.String("ui", "", "tui or plain")
	url := fs.String("url", "", "world endpoint")
	verbose := fs.Bool("verbose", false, "also log to stderr")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*url) != "" {
		cfg.World.URL = strings.TrimSpace(*url)
		cfg.World.Transport = ""
	}
	if strings.TrimSpace(*uiMode) != "" {
		cfg.UI.Mode = strings.TrimSpace(*uiMode)
	}
	// Flag overrides may change the URL scheme or mode; re-derive and
	// re-validate before connecting.
	if err := cfg.Normalize(); err != nil {
		return err
	}

	logger, closeLogger, err := openLogger(cfg, *verbose, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLogger()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	src, err := world.Open(cfg.World)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := src.Subscribe(ctx)
	if err != nil {
		return err
	}
	logger.Logf(uilog.KindWorld, "subscribed to %s via %s", cfg.World.URL, cfg.World.Transport)

	if cfg.UI.Mode == "plain" {
		return runPlainChat(ctx, events, st, logger)
	}
	pub, _ := src.(world.Publisher)
	return tui.Run(ctx, os.Stdin, os.Stdout, tui.Options{
		Store:     st,
		Events:    events,
		Logger:    logger,
		WorldURL:  cfg.World.URL,
		Publisher: pub,
	})
}

// runPlainChat drives the in-place streaming preview renderer directly on
// stdout and flushes finished responses to the transcript.
func runPlainChat(ctx context.Context, events <-chan stream.Event, st *store.Store, logger *uilog.Logger) error {
	renderer := display.NewRenderer(display.Options{})
	defer renderer.Reset()

	acc := stream.NewAccumulator()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				logger.Log(uilog.KindWorld, "world stream closed")
				return nil
			}
			switch ev.Kind {
			case stream.KindStart:
				renderer.Start(ev.AgentID, ev.Label())
			case stream.KindChunk:
				renderer.AddContent(ev.AgentID, ev.Content)
			case stream.KindEnd:
				renderer.End(ev.AgentID)
			case stream.KindError:
				renderer.MarkError(ev.AgentID)
				logger.Logf(uilog.KindStream, "stream %s failed: %s", ev.AgentID, ev.Err)
			}
			if finished := acc.Apply(ev); finished != nil {
				msg := store.Message{
					Role:    "agent",
					Agent:   finished.DisplayName,
					Content: finished.FinalText(),
				}
				if finished.Failed {
					msg.Content += " (error)"
				}
				if err := st.Append(msg); err != nil {
					logger.Logf(uilog.KindError, "append agent message: %v", err)
				}
				acc.Drop(finished.AgentID)
			}
		}
	}
}

func openLogger(cfg config.Config, verbose bool, termW io.Writer) (*uilog.Logger, func(), error) {
	opts := uilog.Options{
		Term:        termW,
		TermEnabled: verbose,
		TermColor:   uilog.TermColorEnabled(termW),
	}
	if strings.TrimSpace(cfg.LogFile) != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		opts.File = f
	}
	logger := uilog.New(opts)
	return logger, func() { _ = logger.Close() }, nil
}
