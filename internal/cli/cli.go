// Package cli implements the depfetch command-line interface.
//
// The CLI is built with cobra and logs through charmbracelet/log. Every
// command that touches the network builds one manager.Manager per
// invocation from the shared flags:
//
//   - --manifest: TOML manifest with dependencies, relocations and repositories
//   - --repo: repository hosts, tried in order (default Maven Central)
//   - --cache-dir: artifact cache root
//   - --descriptor-cache: directory, redis:// URL, or "off"
//   - --workers: worker pool size (1 runs everything on the calling goroutine)
//
// # Commands
//
//   - fetch: resolve, download, optionally relocate, and print a classpath
//   - resolve: list the transitive dependency set
//   - tree: print or render the resolution graph
//   - cache: show, clean or clear the artifact cache
//   - serve: expose the artifact cache as a repository
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depfetch/pkg/buildinfo"
	"github.com/matzehuels/depfetch/pkg/cache"
	"github.com/matzehuels/depfetch/pkg/cachepath"
	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/manager"
	"github.com/matzehuels/depfetch/pkg/manifest"
	"github.com/matzehuels/depfetch/pkg/repository"
	"github.com/matzehuels/depfetch/pkg/task"
	"github.com/matzehuels/depfetch/pkg/transport"
)

const (
	// appName is the application name used for directories and display.
	appName = "depfetch"

	// descriptorCacheOff disables the descriptor cache.
	descriptorCacheOff = "off"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer // command output; logs go to Logger

	flags globalFlags
}

type globalFlags struct {
	manifest        string
	repos           []string
	cacheDir        string
	descriptorCache string
	workers         int
}

// New creates a CLI writing logs to w at the given level and command
// output to stdout.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), Out: os.Stdout}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "depfetch downloads and verifies JVM dependencies at run time",
		Long:         `depfetch resolves Maven coordinates transitively, downloads every artifact with repository fallback and hash verification, and prints the resulting classpath.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.manifest, "manifest", "m", "", "TOML manifest to read dependencies from")
	pf.StringArrayVarP(&c.flags.repos, "repo", "r", nil, "repository host, repeatable (default Maven Central)")
	pf.StringVar(&c.flags.cacheDir, "cache-dir", "", "artifact cache root (default $XDG_CACHE_HOME/depfetch/artifacts)")
	pf.StringVar(&c.flags.descriptorCache, "descriptor-cache", "", `descriptor cache: directory, redis:// URL, or "off"`)
	pf.IntVarP(&c.flags.workers, "workers", "w", 8, "concurrent downloads")

	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// session is everything one command invocation needs.
type session struct {
	mgr   *manager.Manager
	repos []repository.Repository
	root  string
	close func()
}

// newSession builds a manager from the global flags, seeded with the
// manifest (if any) and the coordinates in args.
func (c *CLI) newSession(ctx context.Context, args []string) (*session, error) {
	root, err := c.artifactRoot()
	if err != nil {
		return nil, err
	}

	var mf *manifest.Manifest
	if c.flags.manifest != "" {
		if mf, err = manifest.Load(c.flags.manifest); err != nil {
			return nil, err
		}
	}

	repos, err := c.repositories(mf)
	if err != nil {
		return nil, err
	}

	dc, err := c.descriptorCache(ctx)
	if err != nil {
		return nil, err
	}

	var runner task.Runner
	var pool *task.Pool
	if c.flags.workers > 1 {
		pool = task.NewPool(c.flags.workers)
		runner = pool
	}

	mgr := manager.New(manager.Options{
		Paths:      cachepath.New(root),
		Downloader: transport.NewHTTP(transport.Options{Logger: c.Logger}),
		Runner:     runner,
		Cache:      dc,
		Logger:     c.Logger,
	})
	s := &session{
		mgr:   mgr,
		repos: repos,
		root:  root,
		close: func() {
			if pool != nil {
				pool.Stop()
			}
			dc.Close()
		},
	}

	if mf != nil {
		if err := mgr.LoadManifest(mf); err != nil {
			s.close()
			return nil, err
		}
	}
	for _, a := range args {
		co, err := coord.Parse(a)
		if err != nil {
			s.close()
			return nil, err
		}
		mgr.Add(co)
	}
	c.Logger.Debug("session ready", "run", mgr.ID(), "deps", len(mgr.Dependencies()), "repos", len(repos), "root", root)
	return s, nil
}

func (c *CLI) artifactRoot() (string, error) {
	if c.flags.cacheDir != "" {
		return filepath.Abs(c.flags.cacheDir)
	}
	return cachepath.DefaultRoot()
}

// repositories prefers --repo, then the manifest, then Maven Central.
func (c *CLI) repositories(mf *manifest.Manifest) ([]repository.Repository, error) {
	switch {
	case len(c.flags.repos) > 0:
		return repository.ParseAll(c.flags.repos)
	case mf != nil && len(mf.Repositories) > 0:
		return mf.Repositories, nil
	default:
		return []repository.Repository{repository.New(repository.MavenCentral)}, nil
	}
}

func (c *CLI) descriptorCache(ctx context.Context) (cache.Cache, error) {
	loc := strings.TrimSpace(c.flags.descriptorCache)
	switch loc {
	case descriptorCacheOff:
		return cache.NewNullCache(), nil
	case "":
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		loc = filepath.Join(dir, "descriptors")
	}
	return cache.Open(ctx, loc)
}

// cacheDir returns the depfetch cache base using the XDG standard
// (~/.cache/depfetch/).
func cacheDir() (string, error) {
	root, err := cachepath.DefaultRoot()
	if err != nil {
		return "", err
	}
	return filepath.Dir(root), nil
}
