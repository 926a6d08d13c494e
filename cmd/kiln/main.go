// Package main is the entry point for the kiln pipeline runner.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"

	"github.com/kilnbuild/kiln/cmd/kiln/commands"
	"github.com/kilnbuild/kiln/internal/app"
	"github.com/kilnbuild/kiln/internal/core/domain"
	_ "github.com/kilnbuild/kiln/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run(opts ...func(*app.App)) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed.
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	for _, opt := range opts {
		opt(components.App)
	}

	cli := commands.New(components.App)

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrRunFailed) {
			// The scheduler already reported job failures.
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
