// Package transport moves bytes from a repository URL to a local file.
//
// [Downloader] is the collaborator interface used by acquisition. [HTTP] is
// the default implementation: it retries transient failures with
// exponential backoff, writes to a temporary file in the destination
// directory and renames it into place, so a destination path never holds a
// partially written file.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depfetch/pkg/buildinfo"
	"github.com/matzehuels/depfetch/pkg/digest"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/observability"
)

// Sentinel errors. Transport failures wrap one of these so callers can use
// errors.Is from the standard library or [errors.Is] with a code.
var (
	// ErrNotFound is returned when the repository does not have the file.
	ErrNotFound = &errors.Error{Code: errors.ErrCodeNotFound, Message: "resource not found"}

	// ErrNetwork is returned for connection failures and unexpected statuses.
	ErrNetwork = &errors.Error{Code: errors.ErrCodeNetwork, Message: "network error"}
)

// Downloader fetches url into dest, creating parent directories and
// overwriting an existing file.
type Downloader interface {
	DownloadFile(ctx context.Context, url, dest string) error
}

// DigestDownloader is a Downloader that digests the body while writing it,
// returning the lowercase hex digest for algorithm.
type DigestDownloader interface {
	Downloader
	DownloadFileDigest(ctx context.Context, url, dest, algorithm string) (string, error)
}

// Options configures [HTTP].
type Options struct {
	Client    *http.Client  // nil uses a client without a timeout
	Attempts  int           // attempts per download; 0 means 3
	Delay     time.Duration // initial backoff; 0 means one second
	UserAgent string        // empty means "depfetch/<version>"
	Headers   map[string]string
	Logger    *log.Logger
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Delay <= 0 {
		o.Delay = time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = buildinfo.UserAgent()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// HTTP downloads files over http and https.
type HTTP struct {
	opts Options
}

// NewHTTP creates an HTTP downloader.
func NewHTTP(opts Options) *HTTP {
	return &HTTP{opts: opts.WithDefaults()}
}

// DownloadFile implements [Downloader].
func (h *HTTP) DownloadFile(ctx context.Context, rawURL, dest string) error {
	_, err := h.DownloadFileDigest(ctx, rawURL, dest, "")
	return err
}

// DownloadFileDigest implements [DigestDownloader]. An empty algorithm skips
// hashing and returns an empty digest.
func (h *HTTP) DownloadFileDigest(ctx context.Context, rawURL, dest, algorithm string) (string, error) {
	if algorithm != "" && !digest.Supported(algorithm) {
		return "", errors.New(errors.ErrCodeUnsupported, "unsupported hash algorithm %q", algorithm)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create directory for %s", dest)
	}
	var sum string
	err := Retry(ctx, h.opts.Attempts, h.opts.Delay, func() error {
		var err error
		sum, err = h.download(ctx, rawURL, dest, algorithm)
		if IsRetryable(err) {
			h.opts.Logger.Debug("retrying download", "url", rawURL, "err", err)
		}
		return err
	})
	return sum, err
}

func (h *HTTP) download(ctx context.Context, rawURL, dest, algorithm string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", h.opts.UserAgent)
	for k, v := range h.opts.Headers {
		req.Header.Set(k, v)
	}

	host, path := hostPath(rawURL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := h.opts.Client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	sum, err := writeAtomic(dest, resp.Body, algorithm)
	if err != nil {
		return "", Retryable(fmt.Errorf("%w: read %s: %v", ErrNetwork, rawURL, err))
	}
	return sum, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// writeAtomic copies r into a temporary sibling of dest, digesting it when
// algorithm is set, and renames it into place.
func writeAtomic(dest string, r io.Reader, algorithm string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	fail := func(err error) (string, error) {
		tmp.Close()
		os.Remove(name)
		return "", err
	}

	var w io.Writer = tmp
	var dw *digest.Writer
	if algorithm != "" {
		if dw, err = digest.NewWriter(tmp, algorithm); err != nil {
			return fail(err)
		}
		w = dw
	}
	if _, err := io.Copy(w, r); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Rename(name, dest); err != nil {
		os.Remove(name)
		return "", err
	}
	if dw == nil {
		return "", nil
	}
	return dw.Sum(), nil
}

func hostPath(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", rawURL
	}
	return u.Host, u.Path
}

var _ DigestDownloader = (*HTTP)(nil)
