package version

import "runtime/debug"

// Set at build time with -ldflags "-X github.com/monorkin/stone-hub/internal/version.Version=...".
var Version = "dev"

// GetVersion returns the ldflags version, or the module version recorded
// by `go install` when none was set.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return Version
}
