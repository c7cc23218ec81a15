// Package manager orchestrates one dependency-fetch run.
//
// A [Manager] holds an ordered, deduplicated sequence of coordinates and a
// set of relocation rules, and moves through a fixed sequence of stages:
//
//	Idle → Downloaded → [Relocated] → Loaded
//
// Each stage runs exactly once. Coordinates may only be added while the
// manager is idle; relocation rules only until relocation has started.
// Transitive resolution merges discovered coordinates into the same
// sequence, so it must finish before [Manager.Download].
//
// # Usage
//
//	m := manager.New(manager.Options{Paths: cachepath.New(root)})
//	m.Add(coord.MustParse("com.google.guava:guava:33.0.0-jre"))
//	if err := m.ResolveAll(ctx, repos); err != nil { ... }
//	if err := m.DownloadAll(ctx, repos); err != nil { ... }
//	cp := &loader.Classpath{}
//	if err := m.LoadAll(ctx, cp); err != nil { ... }
package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/depfetch/pkg/acquire"
	"github.com/matzehuels/depfetch/pkg/cache"
	"github.com/matzehuels/depfetch/pkg/cachepath"
	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/descriptor"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/loader"
	"github.com/matzehuels/depfetch/pkg/manifest"
	"github.com/matzehuels/depfetch/pkg/relocation"
	"github.com/matzehuels/depfetch/pkg/repository"
	"github.com/matzehuels/depfetch/pkg/resolve"
	"github.com/matzehuels/depfetch/pkg/task"
	"github.com/matzehuels/depfetch/pkg/transport"
)

// Stage is the lifecycle position of a Manager.
type Stage int32

const (
	Idle Stage = iota
	Downloaded
	Relocated
	Loaded
)

var stageNames = [...]string{
	Idle:       "idle",
	Downloaded: "downloaded",
	Relocated:  "relocated",
	Loaded:     "loaded",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Options configures a Manager.
type Options struct {
	Paths      cachepath.Provider   // required
	Downloader transport.Downloader // nil uses transport.NewHTTP
	Runner     task.Runner          // nil runs every task synchronously
	Parser     descriptor.Parser    // nil uses descriptor.POM
	Cache      cache.Cache          // descriptor cache, nil disables it
	CacheTTL   time.Duration
	Logger     *log.Logger
}

// Manager owns the coordinate sequence, the relocation set and the stage
// counter of one run. It is safe for concurrent use.
type Manager struct {
	id       string
	opts     Options
	logger   *log.Logger
	engine   *acquire.Engine
	resolver *resolve.Resolver

	// mu guards deps and index, and serializes stage transitions with
	// appends so no append can slip past a freeze.
	mu    sync.Mutex
	deps  []coord.Coordinate
	index map[coord.Key]int
	rules *relocation.Set
	stage atomic.Int32
}

// New creates an idle manager with a fresh run ID.
func New(opts Options) *Manager {
	if opts.Paths == nil {
		root, err := cachepath.DefaultRoot()
		if err != nil {
			root = ".depfetch"
		}
		opts.Paths = cachepath.New(root)
	}
	id := uuid.NewString()
	base := opts.Logger
	if base == nil {
		base = log.Default()
	}
	logger := base.With("run", id[:8])
	if opts.Downloader == nil {
		opts.Downloader = transport.NewHTTP(transport.Options{Logger: logger})
	}
	opts.Logger = logger

	m := &Manager{
		id:     id,
		opts:   opts,
		logger: logger,
		engine: acquire.New(opts.Paths, opts.Downloader, logger),
		index:  make(map[coord.Key]int),
		rules:  relocation.NewSet(),
	}
	m.resolver = resolve.New(m, resolve.Options{
		Fetcher:  m.engine,
		Parser:   opts.Parser,
		Cache:    opts.Cache,
		CacheTTL: opts.CacheTTL,
		Runner:   opts.Runner,
		Logger:   logger,
	})
	return m
}

// ID returns the run ID attached to every log line of this manager.
func (m *Manager) ID() string { return m.id }

// Stage returns the current stage.
func (m *Manager) Stage() Stage { return Stage(m.stage.Load()) }

// Graph returns the parent to child graph recorded by transitive resolution.
func (m *Manager) Graph() *resolve.Graph { return m.resolver.Graph() }

// Paths returns the path provider the manager lays files out with.
func (m *Manager) Paths() cachepath.Provider { return m.opts.Paths }

// Add appends coordinates that are not yet in the sequence and returns the
// ones that were added, in order. An entry whose scope does not need the
// artifact is upgraded in place when the same coordinate arrives with a
// runtime scope, and is reported as added. It fails once downloading has
// started.
func (m *Manager) Add(cs ...coord.Coordinate) ([]coord.Coordinate, error) {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "invalid coordinate %s", c)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.Stage(); s != Idle {
		return nil, errors.New(errors.ErrCodeConfiguration, "cannot add dependencies: manager is %s", s)
	}
	var added []coord.Coordinate
	for _, c := range cs {
		k := c.Key()
		if i, ok := m.index[k]; ok {
			if !m.deps[i].MustDownload() && c.MustDownload() {
				m.deps[i] = m.deps[i].WithScope(c.Scope)
				added = append(added, m.deps[i])
			}
			continue
		}
		m.index[k] = len(m.deps)
		m.deps = append(m.deps, c)
		added = append(added, c)
	}
	return added, nil
}

// Dependencies returns a snapshot of the coordinate sequence.
func (m *Manager) Dependencies() []coord.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coord.Coordinate(nil), m.deps...)
}

// AddRelocations adds rules to the relocation set and returns how many were
// new. It fails once relocation has started.
func (m *Manager) AddRelocations(rules ...relocation.Rule) (int, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.Stage(); s >= Relocated {
		return 0, errors.New(errors.ErrCodeConfiguration, "cannot add relocations: manager is %s", s)
	}
	return m.rules.Add(rules...), nil
}

// Relocations returns the relocation rules in canonical order.
func (m *Manager) Relocations() []relocation.Rule { return m.rules.Rules() }

// LoadManifest merges a manifest's dependencies and relocation rules.
func (m *Manager) LoadManifest(mf *manifest.Manifest) error {
	if _, err := m.Add(mf.Dependencies...); err != nil {
		return err
	}
	_, err := m.AddRelocations(mf.Relocations...)
	return err
}

// advance moves the stage from one of from to to. It holds mu so the
// transition is ordered against appends.
func (m *Manager) advance(op string, to Stage, from ...Stage) (Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.Stage()
	for _, f := range from {
		if cur == f && m.stage.CompareAndSwap(int32(f), int32(to)) {
			return f, nil
		}
	}
	return cur, errors.New(errors.ErrCodeConfiguration, "%s requires stage %v, manager is %s", op, from, cur)
}

// ResolveTransitive adds c and resolves its dependency subtree into the
// sequence. The handle completes when the whole subtree is resolved.
func (m *Manager) ResolveTransitive(ctx context.Context, c coord.Coordinate, repos []repository.Repository) *task.Handle {
	if _, err := m.Add(c); err != nil {
		return task.Completed(err)
	}
	return m.resolver.Resolve(ctx, c, repos)
}

// ResolveAll resolves the subtree of every coordinate currently in the
// sequence whose scope must be downloaded, and waits for all of them.
func (m *Manager) ResolveAll(ctx context.Context, repos []repository.Repository) error {
	start := time.Now()
	roots := m.Dependencies()
	m.stageStart(ctx, "resolve", len(roots))

	var hs []*task.Handle
	for _, c := range roots {
		if c.MustDownload() {
			hs = append(hs, m.resolver.Resolve(ctx, c, repos))
		}
	}
	err := task.WaitAll(ctx, hs)
	m.stageComplete(ctx, "resolve", time.Since(start), err)
	if err == nil {
		m.logger.Info("resolved dependencies", "roots", len(roots), "total", len(m.Dependencies()))
	}
	return err
}

// Download acquires every coordinate that must be downloaded and returns one
// handle per coordinate in sequence order. Coordinates in other scopes get
// an already successful handle. After the first failure the remaining
// coordinates are skipped.
func (m *Manager) Download(ctx context.Context, repos []repository.Repository) ([]*task.Handle, error) {
	if _, err := m.advance("download", Downloaded, Idle); err != nil {
		return nil, err
	}
	deps := m.Dependencies()
	start := time.Now()
	m.stageStart(ctx, "download", len(deps))

	b := task.NewBatch(m.opts.Runner)
	for _, c := range deps {
		if !c.MustDownload() {
			b.Add(task.Completed(nil))
			continue
		}
		b.Go(c.String(), func() error {
			_, err := m.engine.Acquire(ctx, c, repos)
			return err
		})
	}
	m.finish(ctx, "download", start, b)
	return b.Handles(), nil
}

// DownloadAll runs Download and waits for the whole batch.
func (m *Manager) DownloadAll(ctx context.Context, repos []repository.Repository) error {
	hs, err := m.Download(ctx, repos)
	if err != nil {
		return err
	}
	return task.WaitAll(ctx, hs)
}

// Relocate runs provider for every downloaded coordinate whose relocated
// file does not exist yet.
func (m *Manager) Relocate(ctx context.Context, provider relocation.Provider) ([]*task.Handle, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "relocate: no relocation provider")
	}
	if _, err := m.advance("relocate", Relocated, Downloaded); err != nil {
		return nil, err
	}
	deps := m.Dependencies()
	rules := m.rules.Rules()
	start := time.Now()
	m.stageStart(ctx, "relocate", len(deps))

	b := task.NewBatch(m.opts.Runner)
	for _, c := range deps {
		if !c.MustDownload() {
			b.Add(task.Completed(nil))
			continue
		}
		from := m.opts.Paths.Path(c, nil)
		to := m.opts.Paths.Path(c, rules)
		if exists(to) {
			b.Add(task.Completed(nil))
			continue
		}
		b.Go(c.String(), func() error {
			if err := provider.Run(ctx, from, to, rules); err != nil {
				return collaborator(err, "relocate %s", c)
			}
			return nil
		})
	}
	m.finish(ctx, "relocate", start, b)
	return b.Handles(), nil
}

// RelocateAll runs Relocate and waits for the whole batch.
func (m *Manager) RelocateAll(ctx context.Context, provider relocation.Provider) error {
	hs, err := m.Relocate(ctx, provider)
	if err != nil {
		return err
	}
	return task.WaitAll(ctx, hs)
}

// Load hands every downloaded coordinate's file to appender: the relocated
// file if the manager was relocated, the plain one otherwise.
func (m *Manager) Load(ctx context.Context, appender loader.Appender) ([]*task.Handle, error) {
	if appender == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "load: no appender")
	}
	prev, err := m.advance("load", Loaded, Downloaded, Relocated)
	if err != nil {
		return nil, err
	}
	deps := m.Dependencies()
	start := time.Now()
	m.stageStart(ctx, "load", len(deps))

	b := task.NewBatch(m.opts.Runner)
	for _, c := range deps {
		if !c.MustDownload() {
			b.Add(task.Completed(nil))
			continue
		}
		path := m.PathFor(c, prev == Relocated)
		b.Go(c.String(), func() error {
			if err := appender.Append(path); err != nil {
				return collaborator(err, "load %s", c)
			}
			return nil
		})
	}
	m.finish(ctx, "load", start, b)
	return b.Handles(), nil
}

// LoadAll runs Load and waits for the whole batch.
func (m *Manager) LoadAll(ctx context.Context, appender loader.Appender) error {
	hs, err := m.Load(ctx, appender)
	if err != nil {
		return err
	}
	return task.WaitAll(ctx, hs)
}

// PathFor returns c's cache path, relocated with the current rule set when
// relocated is true.
func (m *Manager) PathFor(c coord.Coordinate, relocated bool) string {
	if !relocated {
		return m.opts.Paths.Path(c, nil)
	}
	return m.opts.Paths.Path(c, m.rules.Rules())
}

// AllPaths returns the plain path of every coordinate that must be
// downloaded, followed by its relocated path when includeRelocated is set
// and rules exist.
func (m *Manager) AllPaths(includeRelocated bool) []string {
	rules := m.rules.Rules()
	var out []string
	for _, c := range m.Dependencies() {
		if !c.MustDownload() {
			continue
		}
		out = append(out, m.opts.Paths.Path(c, nil))
		if includeRelocated && len(rules) > 0 {
			out = append(out, m.opts.Paths.Path(c, rules))
		}
	}
	return out
}

func (m *Manager) finish(ctx context.Context, stage string, start time.Time, b *task.Batch) {
	b.All().OnComplete(func(err error) {
		m.stageComplete(ctx, stage, time.Since(start), err)
		if err != nil {
			m.logger.Error(stage+" failed", "err", err)
			return
		}
		m.logger.Debug(stage+" complete", "duration", time.Since(start))
	})
}

// collaborator wraps a relocation or load failure. The collaborator's own
// code stays reachable through errors.Is.
func collaborator(err error, format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeCollaborator, err, format, args...)
}
