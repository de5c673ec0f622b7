package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/threadline"
	"github.com/nasermirzaei89/threadline/logging"
)

func main() {
	ctx := context.Background()

	logger, err := logging.New(env.GetString("LOG_LEVEL", logging.DefaultLevel))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create logger", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.NewSlog(logger))

	err = run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "exiting", "error", err)
	}

	// flush before os.Exit, which skips deferred calls
	_ = logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := threadline.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	err = app.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run app: %w", err)
	}

	return nil
}
