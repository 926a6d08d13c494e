// Package ports defines the core interfaces for the application.
package ports

import "github.com/kilnbuild/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the pipeline definition.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the pipeline from the given working directory and returns
	// the validated pipeline definition.
	Load(cwd string) (*domain.Pipeline, error)
}
