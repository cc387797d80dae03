package version

import (
	"errors"
	"runtime/debug"
)

var ErrNoBuildInfo = errors.New("fetching build info failed")

// BuildInfo returns the module versions the binary was built with.
func BuildInfo() (*debug.BuildInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return nil, ErrNoBuildInfo
	}

	return bi, nil
}

// Version returns the main module version, "(devel)" for local builds.
func Version() string {
	bi, err := BuildInfo()
	if err != nil {
		return "unknown"
	}

	if bi.Main.Version == "" {
		return "(devel)"
	}

	return bi.Main.Version
}
