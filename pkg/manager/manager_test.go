package manager

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depfetch/pkg/cachepath"
	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/loader"
	"github.com/matzehuels/depfetch/pkg/manifest"
	"github.com/matzehuels/depfetch/pkg/relocation"
	"github.com/matzehuels/depfetch/pkg/repository"
	"github.com/matzehuels/depfetch/pkg/task"
	"github.com/matzehuels/depfetch/pkg/transport"
)

type fakeRepo struct {
	srv      *httptest.Server
	mu       sync.Mutex
	files    map[string][]byte
	requests map[string]int
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	r := &fakeRepo{files: make(map[string][]byte), requests: make(map[string]int)}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p := strings.TrimPrefix(req.URL.Path, "/")
		r.mu.Lock()
		r.requests[p]++
		data, ok := r.files[p]
		r.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRepo) put(c coord.Coordinate, data []byte) {
	sum := md5.Sum(data)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[c.RemotePath()] = data
	r.files[c.HashRemotePath()] = []byte(hex.EncodeToString(sum[:]))
}

// jar publishes a jar whose content is its coordinate string.
func (r *fakeRepo) jar(s string) coord.Coordinate {
	c := coord.MustParse(s)
	r.put(c, []byte("jar "+s))
	return c
}

// pom publishes a descriptor for s declaring deps ("g:a:v" or "g:a:v:scope").
func (r *fakeRepo) pom(s string, deps ...string) {
	var b strings.Builder
	b.WriteString("<project><dependencies>")
	for _, d := range deps {
		p := strings.Split(d, ":")
		fmt.Fprintf(&b, "<dependency><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version>", p[0], p[1], p[2])
		if len(p) == 4 {
			fmt.Fprintf(&b, "<scope>%s</scope>", p[3])
		}
		b.WriteString("</dependency>")
	}
	b.WriteString("</dependencies></project>")
	r.put(coord.MustParse(s).POM(), []byte(b.String()))
}

func (r *fakeRepo) requested(c coord.Coordinate) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[c.RemotePath()]
}

func (r *fakeRepo) repos() []repository.Repository {
	return []repository.Repository{repository.New(r.srv.URL)}
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	logger := log.New(io.Discard)
	if opts.Paths == nil {
		opts.Paths = cachepath.New(t.TempDir())
	}
	if opts.Downloader == nil {
		opts.Downloader = transport.NewHTTP(transport.Options{Delay: time.Millisecond, Logger: logger})
	}
	opts.Logger = logger
	return New(opts)
}

func copyFile(_ context.Context, from, to string, _ []relocation.Rule) error {
	data, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	return os.WriteFile(to, data, 0o644)
}

var shade = relocation.Rule{Pattern: "com.example", Target: "shaded.com.example"}

func TestNewManager(t *testing.T) {
	a := newTestManager(t, Options{})
	b := newTestManager(t, Options{})
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("run IDs = %q, %q; want distinct non-empty", a.ID(), b.ID())
	}
	if a.Stage() != Idle {
		t.Errorf("Stage() = %v, want idle", a.Stage())
	}
}

func TestStageString(t *testing.T) {
	tests := map[Stage]string{Idle: "idle", Downloaded: "downloaded", Relocated: "relocated", Loaded: "loaded", Stage(9): "unknown"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestAddDeduplicates(t *testing.T) {
	m := newTestManager(t, Options{})
	a := coord.MustParse("g:a:1")
	b := coord.MustParse("g:b:1")

	added, err := m.Add(a, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 2 {
		t.Errorf("Add() added %d, want 2", len(added))
	}
	added, _ = m.Add(a.WithHash("abc", "SHA-256"))
	if len(added) != 0 {
		t.Errorf("Add() of a known identity added %v", added)
	}
	if got := m.Dependencies(); len(got) != 2 || !got[0].Equal(a) || !got[1].Equal(b) {
		t.Errorf("Dependencies() = %v", got)
	}
}

func TestAddUpgradesScope(t *testing.T) {
	m := newTestManager(t, Options{})
	x := coord.MustParse("g:x:1")

	if added, _ := m.Add(x.WithScope(coord.ScopeTest)); len(added) != 1 {
		t.Fatalf("Add() added %v", added)
	}
	added, err := m.Add(x.WithScope(coord.ScopeProvided))
	if err != nil || len(added) != 0 {
		t.Errorf("Add() of another non-runtime scope added %v, err %v", added, err)
	}
	added, err = m.Add(x)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 || !added[0].MustDownload() {
		t.Errorf("Add() of a compile scope = %v, want the upgraded entry", added)
	}
	if added, _ = m.Add(x.WithScope(coord.ScopeTest)); len(added) != 0 {
		t.Errorf("Add() must not downgrade, added %v", added)
	}
	deps := m.Dependencies()
	if len(deps) != 1 || deps[0].Scope != coord.ScopeCompile {
		t.Errorf("Dependencies() = %v, want one compile entry", deps)
	}
}

func TestAddConcurrent(t *testing.T) {
	m := newTestManager(t, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				m.Add(coord.MustParse(fmt.Sprintf("g:a%d:1", j)))
			}
		}()
	}
	wg.Wait()
	if n := len(m.Dependencies()); n != 10 {
		t.Errorf("Dependencies() has %d entries, want 10", n)
	}
}

func TestStageOrdering(t *testing.T) {
	repo := newFakeRepo(t)
	repo.jar("g:a:1")
	m := newTestManager(t, Options{})
	ctx := context.Background()

	if _, err := m.Add(coord.MustParse("g:a:1")); err != nil {
		t.Fatal(err)
	}
	if err := m.RelocateAll(ctx, relocation.Func(copyFile)); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("relocate before download: err = %v, want CONFIGURATION", err)
	}
	if err := m.LoadAll(ctx, &loader.Classpath{}); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("load before download: err = %v, want CONFIGURATION", err)
	}

	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatalf("DownloadAll() error: %v", err)
	}
	if err := m.DownloadAll(ctx, repo.repos()); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("second download: err = %v, want CONFIGURATION", err)
	}
	if _, err := m.Add(coord.MustParse("g:b:1")); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("add after download: err = %v, want CONFIGURATION", err)
	}
	if _, err := m.AddRelocations(shade); err != nil {
		t.Errorf("add relocation before relocate: %v", err)
	}

	if err := m.RelocateAll(ctx, relocation.Func(copyFile)); err != nil {
		t.Fatalf("RelocateAll() error: %v", err)
	}
	if _, err := m.AddRelocations(relocation.Rule{Pattern: "x", Target: "y"}); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("add relocation after relocate: err = %v, want CONFIGURATION", err)
	}

	if err := m.LoadAll(ctx, &loader.Classpath{}); err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if err := m.LoadAll(ctx, &loader.Classpath{}); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("second load: err = %v, want CONFIGURATION", err)
	}
	if m.Stage() != Loaded {
		t.Errorf("Stage() = %v, want loaded", m.Stage())
	}
}

func TestConcurrentStageTransitions(t *testing.T) {
	repo := newFakeRepo(t)
	ctx := context.Background()
	m := newTestManager(t, Options{})
	m.Add(repo.jar("g:a:1"))
	m.AddRelocations(shade)

	race := func(op func() error) (won int, lost int) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := op()
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, errors.ErrCodeConfiguration):
					lost++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		return won, lost
	}

	if won, lost := race(func() error { return m.DownloadAll(ctx, repo.repos()) }); won != 1 || lost != 15 {
		t.Errorf("concurrent download: %d succeeded, %d rejected; want 1 and 15", won, lost)
	}
	if m.Stage() != Downloaded {
		t.Fatalf("Stage() = %v, want downloaded", m.Stage())
	}
	if won, lost := race(func() error { return m.RelocateAll(ctx, relocation.Func(copyFile)) }); won != 1 || lost != 15 {
		t.Errorf("concurrent relocate: %d succeeded, %d rejected; want 1 and 15", won, lost)
	}
	if m.Stage() != Relocated {
		t.Errorf("Stage() = %v, want relocated", m.Stage())
	}
}

func TestDownloadSkipsNonRuntimeScopes(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	b := repo.jar("g:b:1")
	junit := coord.MustParse("junit:junit:4.13.2").WithScope(coord.ScopeTest)

	m := newTestManager(t, Options{})
	m.Add(a, junit, b)
	hs, err := m.Download(context.Background(), repo.repos())
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 3 {
		t.Fatalf("Download() returned %d handles, want 3", len(hs))
	}
	if err := task.WaitAll(context.Background(), hs); err != nil {
		t.Fatalf("download error: %v", err)
	}
	for _, c := range []coord.Coordinate{a, b} {
		if _, err := os.Stat(m.PathFor(c, false)); err != nil {
			t.Errorf("%s not downloaded: %v", c, err)
		}
	}
	if repo.requested(junit) != 0 {
		t.Error("test-scoped coordinate was requested")
	}
}

func TestDownloadFailFast(t *testing.T) {
	repo := newFakeRepo(t)
	missing := coord.MustParse("g:missing:1")
	b := repo.jar("g:b:1")

	m := newTestManager(t, Options{})
	m.Add(missing, b)
	hs, err := m.Download(context.Background(), repo.repos())
	if err != nil {
		t.Fatal(err)
	}

	err = task.WaitAll(context.Background(), hs)
	var ae *errors.AcquisitionError
	if !stderrors.As(err, &ae) {
		t.Fatalf("WaitAll() error = %v, want AcquisitionError", err)
	}
	if !errors.Is(hs[1].Err(), errors.ErrCodeCancelled) {
		t.Errorf("second handle err = %v, want CANCELLED", hs[1].Err())
	}
	if repo.requested(b) != 0 {
		t.Error("coordinate after a failure was still downloaded")
	}
}

func TestDownloadOnPool(t *testing.T) {
	repo := newFakeRepo(t)
	pool := task.NewPool(4)
	defer pool.Stop()

	m := newTestManager(t, Options{Runner: pool})
	for i := 0; i < 8; i++ {
		m.Add(repo.jar(fmt.Sprintf("g:lib%d:1.0", i)))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatalf("DownloadAll() error: %v", err)
	}
	for _, p := range m.AllPaths(false) {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s", p)
		}
	}
}

func TestLoadPlainPaths(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	b := repo.jar("g:b:1")
	m := newTestManager(t, Options{})
	m.Add(a, b)
	m.AddRelocations(shade)

	ctx := context.Background()
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	cp := &loader.Classpath{}
	if err := m.LoadAll(ctx, cp); err != nil {
		t.Fatal(err)
	}
	want := []string{m.PathFor(a, false), m.PathFor(b, false)}
	if got := cp.Paths(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("loaded %v, want %v", got, want)
	}
}

func TestLoadRelocatedPaths(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	m := newTestManager(t, Options{})
	m.Add(a)
	m.AddRelocations(shade)

	ctx := context.Background()
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	if err := m.RelocateAll(ctx, relocation.Func(copyFile)); err != nil {
		t.Fatal(err)
	}
	cp := &loader.Classpath{}
	if err := m.LoadAll(ctx, cp); err != nil {
		t.Fatal(err)
	}

	relocated := m.PathFor(a, true)
	if relocated == m.PathFor(a, false) {
		t.Fatal("relocated path equals plain path")
	}
	if got := cp.Paths(); len(got) != 1 || got[0] != relocated {
		t.Errorf("loaded %v, want [%s]", got, relocated)
	}
	if paths := m.AllPaths(true); len(paths) != 2 {
		t.Errorf("AllPaths(true) = %v, want plain and relocated", paths)
	}
}

func TestRelocateSkipsExisting(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	m := newTestManager(t, Options{})
	m.Add(a)
	m.AddRelocations(shade)

	ctx := context.Background()
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.PathFor(a, true), []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}
	calls := 0
	provider := relocation.Func(func(context.Context, string, string, []relocation.Rule) error {
		calls++
		return nil
	})
	if err := m.RelocateAll(ctx, provider); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("provider called %d times, want 0", calls)
	}
}

func TestCollaboratorErrors(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	ctx := context.Background()

	m := newTestManager(t, Options{})
	m.Add(a)
	m.AddRelocations(shade)
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	failing := relocation.Func(func(context.Context, string, string, []relocation.Rule) error {
		return stderrors.New("boom")
	})
	if err := m.RelocateAll(ctx, failing); !errors.Is(err, errors.ErrCodeCollaborator) {
		t.Errorf("RelocateAll() err = %v, want COLLABORATOR", err)
	}

	m2 := newTestManager(t, Options{})
	m2.Add(a)
	if err := m2.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	appender := loader.AppenderFunc(func(string) error { return stderrors.New("no loader") })
	if err := m2.LoadAll(ctx, appender); !errors.Is(err, errors.ErrCodeCollaborator) {
		t.Errorf("LoadAll() err = %v, want COLLABORATOR", err)
	}
}

func TestCollaboratorCodedErrors(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	ctx := context.Background()

	m := newTestManager(t, Options{})
	m.Add(a)
	m.AddRelocations(shade)
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	failing := relocation.Func(func(context.Context, string, string, []relocation.Rule) error {
		return errors.New(errors.ErrCodeUnsupported, "no shading tool")
	})
	err := m.RelocateAll(ctx, failing)
	if got := errors.GetCode(err); got != errors.ErrCodeCollaborator {
		t.Errorf("RelocateAll() code = %q, want COLLABORATOR (err %v)", got, err)
	}
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("RelocateAll() err = %v, want the provider's code reachable", err)
	}

	m2 := newTestManager(t, Options{})
	m2.Add(a)
	if err := m2.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	appender := loader.AppenderFunc(func(p string) error {
		return errors.New(errors.ErrCodeInvalidPath, "cannot load %s", p)
	})
	err = m2.LoadAll(ctx, appender)
	if got := errors.GetCode(err); got != errors.ErrCodeCollaborator {
		t.Errorf("LoadAll() code = %q, want COLLABORATOR (err %v)", got, err)
	}
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("LoadAll() err = %v, want INVALID_PATH reachable", err)
	}
}

// flatPaths keeps every file directly under root.
type flatPaths struct{ root string }

func (f flatPaths) Path(c coord.Coordinate, rules []relocation.Rule) string {
	if key := relocation.Key(rules); key != "" {
		return filepath.Join(f.root, key+"-"+c.FileName())
	}
	return filepath.Join(f.root, c.FileName())
}

func (f flatPaths) HashPath(c coord.Coordinate) string {
	return filepath.Join(f.root, c.HashFileName())
}

func (f flatPaths) CleanupRoot() string { return f.root }

func TestCleanupCache(t *testing.T) {
	root := t.TempDir()
	m := newTestManager(t, Options{Paths: flatPaths{root}})
	a := coord.MustParse("g:a:1")
	m.Add(a)

	write := func(name string) {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(a.FileName())
	write(a.HashFileName())
	write(a.POM().FileName())
	write("stale-1.0.jar")
	write("stale-1.0.jar.md5")
	if err := os.Mkdir(filepath.Join(root, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	deleted, err := m.CleanupCache()
	if err != nil {
		t.Fatalf("CleanupCache() error: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted %v, want the 2 stale files", deleted)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 4 {
		t.Errorf("%d entries left, want 4 (3 referenced files and the directory)", len(entries))
	}
}

func TestCleanupCacheTree(t *testing.T) {
	repo := newFakeRepo(t)
	a := repo.jar("g:a:1")
	root := t.TempDir()
	m := newTestManager(t, Options{Paths: cachepath.New(root)})
	m.Add(a)
	if err := m.DownloadAll(context.Background(), repo.repos()); err != nil {
		t.Fatal(err)
	}

	stray := filepath.Join(root, "g", "old", "0.9", "old-0.9.jar")
	os.MkdirAll(filepath.Dir(stray), 0o755)
	os.WriteFile(stray, []byte("x"), 0o644)

	deleted, err := m.CleanupCacheTree()
	if err != nil {
		t.Fatalf("CleanupCacheTree() error: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != stray {
		t.Errorf("deleted %v, want [%s]", deleted, stray)
	}
	if _, err := os.Stat(m.PathFor(a, false)); err != nil {
		t.Errorf("referenced artifact removed: %v", err)
	}
}

func TestCleanupRequiresRoot(t *testing.T) {
	m := newTestManager(t, Options{Paths: struct {
		cachepath.Provider
	}{flatPaths{t.TempDir()}}})
	if _, err := m.CleanupCache(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("CleanupCache() err = %v, want CONFIGURATION", err)
	}
}

func TestResolveTransitive(t *testing.T) {
	repo := newFakeRepo(t)
	repo.pom("g:app:1", "g:a:1", "g:b:1")
	repo.pom("g:a:1", "g:b:1")
	repo.pom("g:b:1")

	m := newTestManager(t, Options{})
	ctx := context.Background()
	if err := m.ResolveTransitive(ctx, coord.MustParse("g:app:1"), repo.repos()).Wait(ctx); err != nil {
		t.Fatalf("ResolveTransitive() error: %v", err)
	}
	if n := len(m.Dependencies()); n != 3 {
		t.Errorf("Dependencies() = %d entries, want 3", n)
	}
	if m.Graph().EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", m.Graph().EdgeCount())
	}

	if err := m.DownloadAll(ctx, repo.repos()); err == nil {
		t.Error("DownloadAll() should fail: no jars are published")
	}
	h := m.ResolveTransitive(ctx, coord.MustParse("g:late:1"), repo.repos())
	if err := h.Wait(ctx); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("resolve after download: err = %v, want CONFIGURATION", err)
	}
}

func TestResolveTransitiveUpgradesScope(t *testing.T) {
	repo := newFakeRepo(t)
	root := repo.jar("g:root:1")
	repo.jar("g:a:1")
	x := repo.jar("g:x:1")
	repo.pom("g:root:1", "g:x:1:test", "g:a:1")
	repo.pom("g:a:1", "g:x:1")
	repo.pom("g:x:1")

	m := newTestManager(t, Options{})
	ctx := context.Background()
	if err := m.ResolveTransitive(ctx, root, repo.repos()).Wait(ctx); err != nil {
		t.Fatalf("ResolveTransitive() error: %v", err)
	}
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatal(err)
	}
	if repo.requested(x) != 1 {
		t.Errorf("g:x:1 requested %d times, want 1", repo.requested(x))
	}
	if repo.requested(x.POM()) != 1 {
		t.Errorf("g:x:1 descriptor requested %d times, want 1", repo.requested(x.POM()))
	}

	cp := &loader.Classpath{}
	if err := m.LoadAll(ctx, cp); err != nil {
		t.Fatal(err)
	}
	if n := len(cp.Paths()); n != 3 {
		t.Errorf("loaded %d paths, want 3", n)
	}
}

func TestResolveTransitiveDeclaredHash(t *testing.T) {
	repo := newFakeRepo(t)
	repo.jar("g:a:1")
	repo.pom("g:root:1", "g:a:1")
	repo.pom("g:a:1")
	data := []byte("jar g:root:1")
	sum := md5.Sum(data)
	root := coord.MustParse("g:root:1").WithHash(hex.EncodeToString(sum[:]), "MD5")
	repo.put(root, data)

	m := newTestManager(t, Options{})
	ctx := context.Background()
	if err := m.ResolveTransitive(ctx, root, repo.repos()).Wait(ctx); err != nil {
		t.Fatalf("ResolveTransitive() error: %v", err)
	}
	if err := m.DownloadAll(ctx, repo.repos()); err != nil {
		t.Fatalf("DownloadAll() error: %v", err)
	}
	if n := len(m.Dependencies()); n != 2 {
		t.Errorf("Dependencies() = %d entries, want 2", n)
	}
}

func TestResolveAll(t *testing.T) {
	repo := newFakeRepo(t)
	repo.pom("g:a:1", "g:c:1")
	repo.pom("g:b:1", "g:c:1")
	repo.pom("g:c:1")

	m := newTestManager(t, Options{})
	m.Add(coord.MustParse("g:a:1"), coord.MustParse("g:b:1"))
	if err := m.ResolveAll(context.Background(), repo.repos()); err != nil {
		t.Fatalf("ResolveAll() error: %v", err)
	}
	deps := m.Dependencies()
	if len(deps) != 3 || deps[2].ArtifactID != "c" {
		t.Errorf("Dependencies() = %v", deps)
	}
}

func TestLoadManifest(t *testing.T) {
	mf, err := manifest.Parse(strings.NewReader(`
[[dependency]]
coordinate = "g:a:1"

[[dependency]]
coordinate = "g:a:1"

[[relocation]]
pattern = "com.example"
target = "shaded.com.example"
`))
	if err != nil {
		t.Fatal(err)
	}
	m := newTestManager(t, Options{})
	if err := m.LoadManifest(mf); err != nil {
		t.Fatal(err)
	}
	if len(m.Dependencies()) != 1 || len(m.Relocations()) != 1 {
		t.Errorf("got %d deps, %d rules; want 1, 1", len(m.Dependencies()), len(m.Relocations()))
	}
}

func TestPathDeterminism(t *testing.T) {
	root := t.TempDir()
	c := coord.MustParse("com.google.guava:guava:33.0.0-jre")
	a := newTestManager(t, Options{Paths: cachepath.New(root)})
	b := newTestManager(t, Options{Paths: cachepath.New(root)})
	if a.PathFor(c, false) != b.PathFor(c, false) {
		t.Errorf("plain paths differ: %s vs %s", a.PathFor(c, false), b.PathFor(c, false))
	}

	a.AddRelocations(shade)
	b.AddRelocations(relocation.Rule{Pattern: "com.google", Target: "other.com.google"})
	if a.PathFor(c, true) == b.PathFor(c, true) {
		t.Error("distinct relocation sets share a relocated path")
	}
	if a.PathFor(c, true) == a.PathFor(c, false) {
		t.Error("relocated path equals plain path")
	}
}
