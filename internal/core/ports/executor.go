package ports

import (
	"context"
	"io"

	"github.com/kilnbuild/kiln/internal/core/domain"
)

// Executor defines the interface for executing steps.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the given step with the specified environment.
	//
	// The env parameter contains environment variables in "KEY=VALUE"
	// format, already merged from the pipeline, job, and step layers.
	// Command output is streamed to stdout and stderr in addition to the
	// executor's own logging.
	//
	// It returns an error if the step's command exits non-zero.
	Execute(ctx context.Context, step *domain.Step, env []string, stdout, stderr io.Writer) error
}
