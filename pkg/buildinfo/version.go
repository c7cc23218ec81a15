// Package buildinfo holds version information stamped in at link time:
//
//	go build -ldflags "-X github.com/matzehuels/depfetch/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/depfetch/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/depfetch/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/depfetch
package buildinfo

import "fmt"

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"
	// Commit is the short git commit.
	Commit = "none"
	// Date is the UTC build timestamp.
	Date = "unknown"
)

// UserAgent is sent with every repository request.
func UserAgent() string {
	return "depfetch/" + Version
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}
