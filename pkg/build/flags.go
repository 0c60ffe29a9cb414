// SPDX-License-Identifier: MIT
/*
Package build exposes binary metadata injected at compile time via -ldflags.
Development builds that skip the flags report "dev" values instead of failing.
*/
package build

// Populated by the linker, e.g.
//
//	go build -ldflags "-X vizmon/pkg/build.version=v0.3.0 -X vizmon/pkg/build.commit=$(git rev-parse --short HEAD)"
var (
	name    string
	version string
	commit  string
	date    string
)

// Info is a snapshot of the build metadata.
type Info struct {
	Name    string
	Version string
	Commit  string
	Date    string
}

// Current returns the build metadata, substituting placeholders for any
// value the linker did not set.
func Current() Info {
	return Info{
		Name:    orDefault(name, "vizmon"),
		Version: orDefault(version, "dev"),
		Commit:  orDefault(commit, "unknown"),
		Date:    orDefault(date, "unknown"),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
