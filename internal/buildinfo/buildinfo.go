// Package buildinfo provides build-time information for trustboot binaries.
// Build information is injected at compile time via ldflags, e.g.
//
//	-X github.com/sufield/trustboot/internal/buildinfo.Version=v1.2.0
package buildinfo

import (
	"fmt"
	"runtime"
)

// Build information variables - injected at compile time via ldflags
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
	BuildUser  = "unknown"
	BuildHost  = "unknown"
)

// Info is a structured representation of the build information
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	BuildUser  string `json:"build_user"`
	BuildHost  string `json:"build_host"`
	GoVersion  string `json:"go_version"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		BuildUser:  BuildUser,
		BuildHost:  BuildHost,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

// String renders a one-line summary.
func (i Info) String() string {
	return fmt.Sprintf("trustboot %s (commit %s, built %s, %s %s/%s)",
		i.Version, i.CommitHash, i.BuildTime, i.GoVersion, i.OS, i.Arch)
}
