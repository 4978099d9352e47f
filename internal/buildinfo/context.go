// Package buildinfo holds build-time metadata, kept apart from user configuration.
package buildinfo

import (
	"fmt"
	"runtime"
)

// UnknownValue is reported for metadata not set at build time.
const UnknownValue = "unknown"

// Set with -ldflags "-X github.com/gpacalc/gpacalc/internal/buildinfo.Version=...".
var (
	Version   = "dev"
	BuildDate = ""
)

// Context contains build-time metadata that is not user-configurable
type Context struct {
	Version   string
	BuildDate string
	GoVersion string
}

// Current returns the metadata of the running binary.
func Current() *Context {
	return NewContext(Version, BuildDate)
}

// NewContext creates a build context. Empty values read as UnknownValue.
func NewContext(version, buildDate string) *Context {
	return &Context{
		Version:   version,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}
}

// GetVersion returns the build version, or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date, or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// String is the version line printed by --version.
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s, %s)", c.GetVersion(), c.GetBuildDate(), c.GoVersion)
}
