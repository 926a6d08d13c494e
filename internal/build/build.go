// Package build holds build-time information.
package build

// Version is the kiln version. It defaults to "dev" and is set through
// linker flags at release time.
var Version = "dev"
