// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/kilnbuild/kiln/internal/adapters/cache"
	_ "github.com/kilnbuild/kiln/internal/adapters/config"
	_ "github.com/kilnbuild/kiln/internal/adapters/fs"
	_ "github.com/kilnbuild/kiln/internal/adapters/logger"
	_ "github.com/kilnbuild/kiln/internal/adapters/shell"
	_ "github.com/kilnbuild/kiln/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "github.com/kilnbuild/kiln/internal/app"
	_ "github.com/kilnbuild/kiln/internal/engine/scheduler"
)
