// Command arblens-tui is a terminal dashboard for a running arblens server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alanyoungcy/arblens/internal/apiclient"
	"github.com/alanyoungcy/arblens/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", envOr("ARBLENS_ADDR", "http://localhost:8000"), "arblens server URL")
	apiKey := flag.String("api-key", os.Getenv("ARBLENS_SERVER_API_KEY"), "API key (optional)")
	poll := flag.Duration("poll", 2*time.Second, "refresh interval")
	logPath := flag.String("log", "arblens-tui.log", "log file path")
	flag.Parse()

	// The terminal belongs to the UI, so logs go to a file.
	f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arblens-tui: open log: %v\n", err)
		return 1
	}
	defer f.Close()
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := apiclient.New(*addr, apiclient.WithAPIKey(*apiKey))
	logger.Info("arblens-tui starting", slog.String("addr", *addr), slog.Duration("poll", *poll))

	if err := tui.Run(tui.Options{
		Context:  ctx,
		Backend:  client,
		PollTick: *poll,
		Logger:   logger,
	}); err != nil {
		logger.Error("tui exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "arblens-tui: %v\n", err)
		return 1
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
