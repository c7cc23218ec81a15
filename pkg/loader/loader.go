// Package loader hands resolved artifact files to the host's code-loading
// mechanism.
//
// The mechanism itself is external: [Appender] is its interface. [Classpath]
// is the default adapter. It collects absolute paths and renders them as a
// classpath string for a child JVM.
package loader

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// Appender makes the file at path available to the host.
type Appender interface {
	Append(path string) error
}

// AppenderFunc adapts a function to [Appender].
type AppenderFunc func(path string) error

// Append calls f.
func (f AppenderFunc) Append(path string) error { return f(path) }

// Classpath collects artifact paths in append order. It is safe for
// concurrent use.
type Classpath struct {
	mu    sync.Mutex
	paths []string
}

// Append implements [Appender]. The path is made absolute; a path that
// cannot be resolved fails with an INVALID_PATH error.
func (c *Classpath) Append(path string) error {
	if path == "" {
		return errors.New(errors.ErrCodeInvalidPath, "empty classpath entry")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.paths, abs) {
		c.paths = append(c.paths, abs)
	}
	return nil
}

// Paths returns the collected absolute paths.
func (c *Classpath) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.paths)
}

// Len returns the number of entries.
func (c *Classpath) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

// String joins the paths with the OS list separator, ready for -cp.
func (c *Classpath) String() string {
	return strings.Join(c.Paths(), string(os.PathListSeparator))
}

var (
	_ Appender = (*Classpath)(nil)
	_ Appender = AppenderFunc(nil)
)
