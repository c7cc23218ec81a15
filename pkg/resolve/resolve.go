// Package resolve discovers transitive dependencies by fetching and parsing
// descriptors.
//
// [Resolver.Resolve] fetches a coordinate's POM from the first repository
// that serves it, verifies it, parses its dependency list and hands every
// child to a [Sink]. Children the sink reports as new, and whose scope must
// be downloaded, are resolved recursively. The returned handle completes
// only when the whole subtree has resolved.
//
// Fetch, verification and parse failures are not retried on other
// repositories; they fail the subtree. Concurrent requests for the same
// descriptor share one fetch.
package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/depfetch/pkg/acquire"
	"github.com/matzehuels/depfetch/pkg/cache"
	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/descriptor"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/observability"
	"github.com/matzehuels/depfetch/pkg/repository"
	"github.com/matzehuels/depfetch/pkg/task"
)

// Sink receives discovered children and reports which of them were new.
type Sink interface {
	Add(cs ...coord.Coordinate) ([]coord.Coordinate, error)
}

// Fetcher acquires a verified file for a coordinate. *acquire.Engine
// implements it.
type Fetcher interface {
	AcquireWith(ctx context.Context, c coord.Coordinate, repos []repository.Repository, policy acquire.Policy) (string, error)
}

// Options configures a Resolver.
type Options struct {
	Fetcher  Fetcher           // required
	Parser   descriptor.Parser // nil uses descriptor.POM
	Cache    cache.Cache       // nil disables memoization
	CacheTTL time.Duration     // zero never expires
	Runner   task.Runner       // nil runs synchronously
	Logger   *log.Logger
}

// WithDefaults fills unset optional fields.
func (o Options) WithDefaults() Options {
	if o.Parser == nil {
		o.Parser = descriptor.POM{}
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Resolver walks descriptor trees into a Sink.
type Resolver struct {
	sink  Sink
	opts  Options
	group singleflight.Group
	graph *Graph
}

// New creates a resolver feeding sink.
func New(sink Sink, opts Options) *Resolver {
	return &Resolver{sink: sink, opts: opts.WithDefaults(), graph: NewGraph()}
}

// Graph returns the resolution graph recorded so far.
func (r *Resolver) Graph() *Graph { return r.graph }

// Resolve resolves the subtree under c and returns a handle that completes
// once every discovered descendant has resolved.
func (r *Resolver) Resolve(ctx context.Context, c coord.Coordinate, repos []repository.Repository) *task.Handle {
	r.graph.AddNode(c)
	h := task.NewHandle()
	task.Submit(r.opts.Runner, func() {
		defer func() {
			if v := recover(); v != nil {
				h.Complete(errors.New(errors.ErrCodeInternal, "resolve %s panicked: %v", c, v))
			}
		}()
		r.resolve(ctx, c, repos, h)
	})
	return h
}

func (r *Resolver) resolve(ctx context.Context, c coord.Coordinate, repos []repository.Repository, h *task.Handle) {
	if err := ctx.Err(); err != nil {
		h.Complete(err)
		return
	}

	children, err := r.Children(ctx, c, repos)
	if err != nil {
		h.Complete(fmt.Errorf("resolve %s: %w", c, err))
		return
	}
	r.graph.AddEdges(c, children)
	if len(children) == 0 {
		h.Complete(nil)
		return
	}

	added, err := r.sink.Add(children...)
	if err != nil {
		h.Complete(fmt.Errorf("resolve %s: %w", c, err))
		return
	}
	r.opts.Logger.Debug("resolved descriptor", "coord", c, "children", len(children), "new", len(added))

	var subtree []*task.Handle
	for _, child := range added {
		if child.MustDownload() {
			subtree = append(subtree, r.Resolve(ctx, child, repos))
		}
	}
	task.WhenAll(subtree...).OnComplete(func(err error) { h.Complete(err) })
}

// Children fetches, verifies and parses c's descriptor. Concurrent calls
// for the same descriptor share one fetch.
func (r *Resolver) Children(ctx context.Context, c coord.Coordinate, repos []repository.Repository) ([]coord.Coordinate, error) {
	pom := c.POM()
	key := pom.String() + "@" + pom.Snapshot
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.fetchChildren(ctx, pom, repos)
	})
	if err != nil {
		return nil, err
	}
	return v.([]coord.Coordinate), nil
}

func (r *Resolver) fetchChildren(ctx context.Context, pom coord.Coordinate, repos []repository.Repository) ([]coord.Coordinate, error) {
	path, err := r.opts.Fetcher.AcquireWith(ctx, pom, repos, acquire.FirstUsable)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	key := cache.DescriptorKey(pom, cache.Hash(data))
	if children, ok := r.cached(ctx, key); ok {
		return children, nil
	}

	children, err := r.opts.Parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, children)
	return children, nil
}

func (r *Resolver) cached(ctx context.Context, key string) ([]coord.Coordinate, bool) {
	data, ok, err := r.opts.Cache.Get(ctx, key)
	if err != nil {
		r.opts.Logger.Warn("descriptor cache read failed", "err", err)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "descriptor")
		return nil, false
	}
	var children []coord.Coordinate
	if err := json.Unmarshal(data, &children); err != nil {
		_ = r.opts.Cache.Delete(ctx, key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "descriptor")
	return children, true
}

func (r *Resolver) store(ctx context.Context, key string, children []coord.Coordinate) {
	if children == nil {
		children = []coord.Coordinate{}
	}
	data, err := json.Marshal(children)
	if err != nil {
		return
	}
	if err := r.opts.Cache.Set(ctx, key, data, r.opts.CacheTTL); err != nil {
		r.opts.Logger.Warn("descriptor cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "descriptor", len(data))
}
