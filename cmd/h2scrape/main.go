package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/use-agent/h2scrape/config"
	"github.com/use-agent/h2scrape/engine"
	"github.com/use-agent/h2scrape/models"
	"github.com/use-agent/h2scrape/scraper"
)

// LevelCritical marks failures that escaped the scrape operation.
const LevelCritical = slog.Level(12)

// engineFactory builds the session backend named in the config.
type engineFactory func(name string, logger *slog.Logger) (engine.Engine, error)

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr, config.Load(), engine.New))
}

// run executes one scrape and returns the process exit code. On success the
// JSON document is the only thing written to stdout.
func run(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, newEngine engineFactory) (code int) {
	logger := newLogger(stderr, cfg.Log)

	defer func() {
		if r := recover(); r != nil {
			logger.Log(ctx, LevelCritical, "an unexpected error occurred in main execution",
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			code = 1
		}
	}()

	eng, err := newEngine(cfg.Browser.Engine, logger)
	if err != nil {
		logger.Log(ctx, LevelCritical, "an unexpected error occurred in main execution", "error", err)
		return 1
	}

	out, err := scraper.New(eng, cfg, logger).Run(ctx)
	if err != nil {
		var se *models.ScrapingError
		if errors.As(err, &se) {
			logger.Error("scraping failed", "error", err)
		} else {
			logger.Log(ctx, LevelCritical, "an unexpected error occurred in main execution",
				"error", err,
				"stack", string(debug.Stack()),
			)
		}
		return 1
	}

	if _, err := fmt.Fprintln(stdout, out); err != nil {
		logger.Log(ctx, LevelCritical, "failed to write result", "error", err)
		return 1
	}
	return 0
}

// newLogger builds the process logger from LogConfig. Output always goes to
// stderr so stdout carries only the result.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
