// straywatch is a diagnostic host: it registers as a
// StatusNotifierHost and logs every item update and removal it sees. It
// is not a tray front-end -- just a way to watch the protocol traffic
// this package produces.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oknozor/stray"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (default: ~/.config/straywatch/config.yaml)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		defaultPath, err := stray.DefaultConfigPath()
		if err != nil {
			slog.Error("failed to resolve default config path", "error", err)
			os.Exit(1)
		}
		path = defaultPath
	}

	cfg, err := stray.LoadConfig(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	engine, err := stray.NewEngine(*cfg)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := engine.Start(); err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer engine.Shutdown()

	host, err := engine.NewHost("straywatch")
	if err != nil {
		slog.Error("failed to register host", "error", err)
		os.Exit(1)
	}
	defer host.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watch(ctx, host)

	<-ctx.Done()
	slog.Info("shutting down")
}

func watch(ctx context.Context, host *stray.Host) {
	for {
		msg, err := host.Recv()
		switch {
		case errors.Is(err, stray.ErrHostClosed):
			return
		case errors.Is(err, stray.ErrLagged):
			slog.Warn("dropped messages before catching up")
		case err != nil:
			slog.Error("receive failed", "error", err)
			continue
		}

		if ctx.Err() != nil {
			return
		}

		switch msg.Kind {
		case stray.NotifierItemMessageUpdate:
			slog.Info("item updated",
				"address", msg.Address,
				"id", msg.Item.ID,
				"title", msg.Item.Title,
				"status", msg.Item.Status,
				"category", msg.Item.Category,
				"menu_items", len(msg.Menu.Submenus),
			)
		case stray.NotifierItemMessageRemove:
			slog.Info("item removed", "address", msg.Address)
		}
	}
}
