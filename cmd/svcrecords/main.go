package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tartampluch/go-svcrecords/internal/cli"
	"github.com/tartampluch/go-svcrecords/internal/config"
)

// main delegates to runMain so deferred cleanup (the log file) runs before
// os.Exit, which skips defers.
func main() {
	os.Exit(runMain())
}

// runMain executes the command tree and maps its outcome to an exit code.
func runMain() int {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM so `serve` shuts down gracefully.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := cli.NewApp(os.Stdout, os.Stderr)
	defer func() {
		_ = app.Close() // Best effort close
	}()

	if err := app.Command().ExecuteContext(ctx); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		_, _ = fmt.Fprintln(os.Stderr, err)
		return config.ExitCodeError
	}

	slog.Debug(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}
