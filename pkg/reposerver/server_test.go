package reposerver

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depfetch/pkg/acquire"
	"github.com/matzehuels/depfetch/pkg/cachepath"
	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/digest"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/repository"
	"github.com/matzehuels/depfetch/pkg/transport"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		remote  string
		want    string
		wantErr bool
	}{
		{"com/google/guava/guava/33.0.0-jre/guava-33.0.0-jre.jar", "com.google.guava/guava/33.0.0-jre/guava-33.0.0-jre.jar", false},
		{"/junit/junit/4.13.2/junit-4.13.2.pom", "junit/junit/4.13.2/junit-4.13.2.pom", false},
		{"guava/33.0.0-jre/guava.jar", "", true},
		{"com/../guava/1/guava-1.jar", "", true},
		{"com//guava/1/guava-1.jar", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			got, err := LocalPath("/cache", tt.remote)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidPath) {
					t.Errorf("LocalPath() error = %v, want INVALID_PATH", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if want := filepath.Join("/cache", tt.want); got != want {
				t.Errorf("LocalPath() = %q, want %q", got, want)
			}
		})
	}
}

func seed(t *testing.T, root string, c coord.Coordinate, data []byte) {
	t.Helper()
	paths := cachepath.New(root)
	if err := paths.EnsureDir(c); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.Path(c, nil), data, 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := digest.Reader(bytes.NewReader(data), c.HashAlgorithm())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.HashPath(c), []byte(sum), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestServeFile(t *testing.T) {
	root := t.TempDir()
	c := coord.MustParse("org.example:lib:1.0")
	seed(t, root, c, []byte("jar bytes"))

	srv := httptest.NewServer(New(root, log.New(io.Discard)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/" + c.RemotePath())
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "jar bytes" {
		t.Errorf("GET = %d %q", resp.StatusCode, body)
	}

	for _, p := range []string{"/org/example/lib/1.0/missing-1.0.jar", "/org/example/lib/1.0", "/nope"} {
		resp, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", p, resp.StatusCode)
		}
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
}

// A second cache can acquire from a served cache and verify against the
// served sidecar.
func TestServeAsUpstream(t *testing.T) {
	upstream := t.TempDir()
	c := coord.MustParse("org.example:lib:1.0")
	seed(t, upstream, c, []byte("jar bytes"))

	srv := httptest.NewServer(New(upstream, log.New(io.Discard)))
	defer srv.Close()

	logger := log.New(io.Discard)
	downstream := cachepath.New(t.TempDir())
	engine := acquire.New(downstream, transport.NewHTTP(transport.Options{Logger: logger}), logger)
	path, err := engine.Acquire(context.Background(), c, []repository.Repository{repository.New(srv.URL)})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "jar bytes" {
		t.Errorf("acquired %q", data)
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(t.TempDir(), log.New(io.Discard)).Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
