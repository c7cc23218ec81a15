// Package cachepath maps coordinates to files in the local artifact cache.
//
// The layout is cacheRoot/groupId/artifactId/version/fileName, where groupId
// keeps its dots. Relocated variants live in the same directory with the
// file name prefixed by the relocation set's stable key, and hash sidecars
// sit next to the plain artifact.
package cachepath

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/relocation"
)

// Provider computes where a coordinate's files live on disk.
type Provider interface {
	// Path returns the artifact path. When rules is non-empty the path of the
	// relocated variant for exactly that rule set is returned.
	Path(c coord.Coordinate, rules []relocation.Rule) string
	// HashPath returns the path of the hash sidecar for the plain artifact.
	HashPath(c coord.Coordinate) string
}

// CleanupProvider is a Provider that also owns a directory which may be
// swept of unreferenced files.
type CleanupProvider interface {
	Provider
	CleanupRoot() string
}

// Directory lays out the cache under a single root directory.
type Directory struct {
	Root string
}

// New returns a Directory rooted at root.
func New(root string) *Directory {
	return &Directory{Root: filepath.Clean(root)}
}

// Dir returns the directory holding every file of c.
func (d *Directory) Dir(c coord.Coordinate) string {
	return filepath.Join(d.Root, c.GroupID, c.ArtifactID, c.Version)
}

// Path implements [Provider].
func (d *Directory) Path(c coord.Coordinate, rules []relocation.Rule) string {
	name := c.FileName()
	if key := relocation.Key(rules); key != "" {
		name = key + "-" + name
	}
	return filepath.Join(d.Dir(c), name)
}

// HashPath implements [Provider].
func (d *Directory) HashPath(c coord.Coordinate) string {
	return filepath.Join(d.Dir(c), c.HashFileName())
}

// CleanupRoot implements [CleanupProvider].
func (d *Directory) CleanupRoot() string { return d.Root }

// EnsureDir creates the directory for c.
func (d *Directory) EnsureDir(c coord.Coordinate) error {
	return os.MkdirAll(d.Dir(c), 0o755)
}

// DefaultRoot returns the default cache root: $XDG_CACHE_HOME/depfetch/artifacts
// or ~/.cache/depfetch/artifacts.
func DefaultRoot() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "depfetch", "artifacts"), nil
}

var _ CleanupProvider = (*Directory)(nil)
