// Package acquire materializes verified artifact files in the local cache.
//
// [Engine.Acquire] tries repositories strictly in order. For each one it
// downloads the artifact while digesting it, determines the expected digest
// (declared on the coordinate, else a cached hash sidecar, else the hash
// file served by the same repository) and compares. The first repository
// that yields a verified file wins. A file already in the cache that
// verifies is returned without any network access.
//
// When every repository fails the error is an [errors.AcquisitionError]
// carrying exactly one cause per repository, in order.
package acquire

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depfetch/pkg/cachepath"
	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/digest"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/observability"
	"github.com/matzehuels/depfetch/pkg/repository"
	"github.com/matzehuels/depfetch/pkg/transport"
)

// Policy selects how failures on one repository are treated.
type Policy int

const (
	// Fallback moves to the next repository on any failure, including
	// digest mismatches. Used for artifacts.
	Fallback Policy = iota
	// FirstUsable moves on only when the transport fails. Once a repository
	// serves the file, a hash that cannot be verified is fatal. Used for
	// descriptors.
	FirstUsable
)

// Engine acquires artifacts into the cache laid out by a path provider.
// It is safe for concurrent use as long as no two goroutines acquire the
// same coordinate at once.
type Engine struct {
	paths      cachepath.Provider
	downloader transport.Downloader
	logger     *log.Logger
}

// New creates an engine. A nil logger uses log.Default().
func New(paths cachepath.Provider, downloader transport.Downloader, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{paths: paths, downloader: downloader, logger: logger}
}

// Acquire ensures the artifact of c is cached and verified using the
// [Fallback] policy and returns its path.
func (e *Engine) Acquire(ctx context.Context, c coord.Coordinate, repos []repository.Repository) (string, error) {
	return e.AcquireWith(ctx, c, repos, Fallback)
}

// AcquireWith is Acquire with an explicit policy.
func (e *Engine) AcquireWith(ctx context.Context, c coord.Coordinate, repos []repository.Repository, policy Policy) (string, error) {
	hooks := observability.Acquire()
	name := c.String()
	if c.Kind() != coord.TypeJar {
		name += "@" + string(c.Kind())
	}
	hooks.OnAcquireStart(ctx, name)
	start := time.Now()

	path, repo, err := e.acquire(ctx, c, repos, policy)
	hooks.OnAcquireComplete(ctx, name, repo, time.Since(start), err)
	return path, err
}

func (e *Engine) acquire(ctx context.Context, c coord.Coordinate, repos []repository.Repository, policy Policy) (string, string, error) {
	if !digest.Supported(c.HashAlgorithm()) {
		return "", "", errors.New(errors.ErrCodeConfiguration, "%s: unsupported hash algorithm %q", c, c.HashAlgorithm())
	}

	path := e.paths.Path(c, nil)
	hashPath := e.paths.HashPath(c)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "create cache directory for %s", c)
	}

	if ok, err := e.verifyCached(c, path, hashPath); err != nil {
		return "", "", err
	} else if ok {
		e.logger.Debug("cache hit", "coord", c, "type", c.Kind())
		observability.Acquire().OnCacheHit(ctx, c.String())
		return path, "", nil
	}

	causes := make([]error, 0, len(repos))
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		err := e.tryRepository(ctx, c, repo, path, hashPath)
		if err == nil {
			e.logger.Debug("acquired", "coord", c, "type", c.Kind(), "repo", repo.Host)
			return path, repo.Host, nil
		}

		e.logger.Debug("repository failed", "coord", c, "type", c.Kind(), "repo", repo.Host, "err", err)
		observability.Acquire().OnRepositoryFailure(ctx, c.String(), repo.Host, err)
		if policy == FirstUsable && !isTransport(err) {
			return "", "", err
		}
		causes = append(causes, err)
	}
	return "", "", &errors.AcquisitionError{Coordinate: c.String(), Causes: causes}
}

// verifyCached reports whether a cached artifact verifies. A cached file
// that fails verification is deleted together with the sidecar it was
// checked against.
func (e *Engine) verifyCached(c coord.Coordinate, path, hashPath string) (bool, error) {
	if !exists(path) {
		return false, nil
	}
	expected := c.Hash
	fromSidecar := false
	if expected == "" {
		if !exists(hashPath) {
			return false, nil
		}
		sidecar, err := digest.ReadSidecar(hashPath)
		if err != nil {
			os.Remove(hashPath)
			return false, nil
		}
		expected, fromSidecar = sidecar, true
	}

	err := digest.Verify(path, c.HashAlgorithm(), expected)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, errors.ErrCodeIntegrity) {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "read cached %s", path)
	}
	e.logger.Warn("discarding stale cached file", "coord", c, "path", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "remove stale %s", path)
	}
	if fromSidecar {
		os.Remove(hashPath)
	}
	return false, nil
}

// tryRepository downloads and verifies c from one repository. On failure
// nothing it wrote is left behind.
func (e *Engine) tryRepository(ctx context.Context, c coord.Coordinate, repo repository.Repository, path, hashPath string) error {
	actual, err := e.download(ctx, repo.ArtifactURL(c), path, c.HashAlgorithm())
	if err != nil {
		os.Remove(path)
		return err
	}

	expected := c.Hash
	sidecarUsed := false
	if expected == "" {
		sidecarUsed = true
		if !exists(hashPath) {
			if err := e.downloader.DownloadFile(ctx, repo.HashURL(c), hashPath); err != nil {
				os.Remove(path)
				os.Remove(hashPath)
				return errors.Wrap(errors.ErrCodeIntegrity, err, "fetch hash file for %s", c)
			}
		}
		if expected, err = digest.ReadSidecar(hashPath); err != nil {
			os.Remove(path)
			os.Remove(hashPath)
			return &errors.IntegrityError{Path: hashPath, Expected: "", Actual: actual}
		}
	}

	if actual != expected {
		os.Remove(path)
		if sidecarUsed {
			os.Remove(hashPath)
		}
		return &errors.IntegrityError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}

// download fetches url into path and returns its digest, hashing while
// streaming when the downloader supports it.
func (e *Engine) download(ctx context.Context, url, path, algorithm string) (string, error) {
	if dd, ok := e.downloader.(transport.DigestDownloader); ok {
		return dd.DownloadFileDigest(ctx, url, path, algorithm)
	}
	if err := e.downloader.DownloadFile(ctx, url, path); err != nil {
		return "", err
	}
	return digest.File(path, algorithm)
}

// isTransport reports whether the outermost coded error is a transport failure.
func isTransport(err error) bool {
	code := errors.GetCode(err)
	return code == errors.ErrCodeNetwork || code == errors.ErrCodeNotFound
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
