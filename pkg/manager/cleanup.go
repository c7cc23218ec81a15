package manager

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/depfetch/pkg/cachepath"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/observability"
)

// CleanupCache deletes every regular file directly under the cleanup root
// that no known coordinate references and returns the deleted paths.
// Referenced files are the plain and relocated artifacts, their hash
// sidecars, and the descriptors with their sidecars. Directories are never
// touched.
func (m *Manager) CleanupCache() ([]string, error) {
	root, err := m.cleanupRoot()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read cache root %s", root)
	}

	keep := m.referenced()
	var deleted []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if keep[path] {
			continue
		}
		if err := os.Remove(path); err != nil {
			return deleted, errors.Wrap(errors.ErrCodeInternal, err, "remove %s", path)
		}
		deleted = append(deleted, path)
	}
	m.logger.Info("cleaned cache", "root", root, "deleted", len(deleted))
	return deleted, nil
}

// CleanupCacheTree is like CleanupCache but walks the whole tree under the
// cleanup root, which is where a directory layout keeps its files.
func (m *Manager) CleanupCacheTree() ([]string, error) {
	root, err := m.cleanupRoot()
	if err != nil {
		return nil, err
	}

	keep := m.referenced()
	var deleted []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || keep[path] {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		deleted = append(deleted, path)
		return nil
	})
	if err != nil {
		return deleted, errors.Wrap(errors.ErrCodeInternal, err, "clean cache tree %s", root)
	}
	m.logger.Info("cleaned cache tree", "root", root, "deleted", len(deleted))
	return deleted, nil
}

func (m *Manager) cleanupRoot() (string, error) {
	cp, ok := m.opts.Paths.(cachepath.CleanupProvider)
	if !ok {
		return "", errors.New(errors.ErrCodeConfiguration, "path provider %T has no cleanup root", m.opts.Paths)
	}
	return filepath.Clean(cp.CleanupRoot()), nil
}

func (m *Manager) referenced() map[string]bool {
	rules := m.rules.Rules()
	keep := make(map[string]bool)
	for _, c := range m.Dependencies() {
		pom := c.POM()
		for _, p := range []string{
			m.opts.Paths.Path(c, nil),
			m.opts.Paths.Path(c, rules),
			m.opts.Paths.HashPath(c),
			m.opts.Paths.Path(pom, nil),
			m.opts.Paths.HashPath(pom),
		} {
			keep[filepath.Clean(p)] = true
		}
	}
	return keep
}

func (m *Manager) stageStart(ctx context.Context, stage string, count int) {
	m.logger.Debug("stage start", "stage", stage, "count", count)
	observability.Stage().OnStageStart(ctx, m.id, stage, count)
}

func (m *Manager) stageComplete(ctx context.Context, stage string, d time.Duration, err error) {
	observability.Stage().OnStageComplete(ctx, m.id, stage, d, err)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
