// Command spacetraveling serves and builds the blog.
package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nasermirzaei89/env"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevelFromEnv(),
	})))

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "spacetraveling failed", "error", err)
		os.Exit(1)
	}
}

func logLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}
