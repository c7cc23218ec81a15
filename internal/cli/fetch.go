package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/loader"
	"github.com/matzehuels/depfetch/pkg/relocation"
)

type fetchOptions struct {
	transitive    bool
	relocateCmd   string
	classpathOnly bool
	progress      bool
}

func (c *CLI) fetchCommand() *cobra.Command {
	opts := fetchOptions{transitive: true, progress: stderrIsTerminal()}

	cmd := &cobra.Command{
		Use:   "fetch [coordinate...]",
		Short: "Resolve, download and verify dependencies, then print the classpath",
		Long: `Fetch resolves the given coordinates (groupId:artifactId:version[:classifier])
and those in --manifest transitively, downloads every compile and runtime
artifact with repository fallback and hash verification, optionally relocates
them with an external tool, and prints the resulting classpath.`,
		Example: `  depfetch fetch com.google.guava:guava:33.0.0-jre
  depfetch fetch -m deps.toml --classpath
  depfetch fetch -m deps.toml --relocate-cmd "java -jar jarjar.jar {rules} {from} {to}"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := c.runFetch(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			if opts.classpathOnly {
				fmt.Fprintln(c.Out, strings.Join(paths, string(os.PathListSeparator)))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.transitive, "transitive", opts.transitive, "resolve transitive dependencies from descriptors")
	f.StringVar(&opts.relocateCmd, "relocate-cmd", "", "relocation command; {from}, {to} and {rules} are substituted")
	f.BoolVar(&opts.classpathOnly, "classpath", false, "print only the classpath")
	f.BoolVar(&opts.progress, "progress", opts.progress, "show a live download view")
	return cmd
}

// runFetch runs every stage and returns the loaded paths in dependency
// order, which workers may not have appended them in.
func (c *CLI) runFetch(ctx context.Context, args []string, opts fetchOptions) ([]string, error) {
	s, err := c.newSession(ctx, args)
	if err != nil {
		return nil, err
	}
	defer s.close()
	if len(s.mgr.Dependencies()) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "no dependencies: pass coordinates or --manifest")
	}

	if opts.transitive {
		prog := newProgress(c.Logger)
		err := c.withSpinner(ctx, opts.progress, func() string {
			return fmt.Sprintf("Resolving dependencies (%d found)", len(s.mgr.Dependencies()))
		}, func() error {
			return s.mgr.ResolveAll(ctx, s.repos)
		})
		if err != nil {
			return nil, err
		}
		prog.done(fmt.Sprintf("Resolved %d dependencies", len(s.mgr.Dependencies())))
	}

	prog := newProgress(c.Logger)
	total := len(s.mgr.AllPaths(false))
	if opts.progress {
		err = runWithProgress(ctx, total, []tea.ProgramOption{tea.WithOutput(os.Stderr)}, func(ctx context.Context) error {
			return s.mgr.DownloadAll(ctx, s.repos)
		})
	} else {
		err = s.mgr.DownloadAll(ctx, s.repos)
	}
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Downloaded %d artifacts", total))

	relocated := false
	switch {
	case opts.relocateCmd != "":
		fields := strings.Fields(opts.relocateCmd)
		provider := relocation.Exec{Command: fields[0], Args: fields[1:]}
		if err := s.mgr.RelocateAll(ctx, provider); err != nil {
			return nil, err
		}
		relocated = true
	case len(s.mgr.Relocations()) > 0:
		c.Logger.Warn("relocation rules ignored without --relocate-cmd", "rules", len(s.mgr.Relocations()))
	}

	cp := &loader.Classpath{}
	if err := s.mgr.LoadAll(ctx, cp); err != nil {
		return nil, err
	}

	var ordered []string
	for _, d := range s.mgr.Dependencies() {
		if d.MustDownload() {
			ordered = append(ordered, s.mgr.PathFor(d, relocated))
		}
	}

	if !opts.classpathOnly {
		rows := make([]depRow, 0, len(s.mgr.Dependencies()))
		for _, d := range s.mgr.Dependencies() {
			row := depRow{Coord: d, Status: "skipped"}
			if d.MustDownload() {
				row.Status = "verified"
				row.Path = s.mgr.PathFor(d, relocated)
			}
			rows = append(rows, row)
		}
		fmt.Fprintln(c.Out, dependencyTable(rows))
		c.printSuccess("Fetched %d artifacts into %s", cp.Len(), s.root)
		c.printStats(fmt.Sprintf("%d dependencies", len(rows)), fmt.Sprintf("%d on classpath", cp.Len()), fmt.Sprintf("run %s", s.mgr.ID()[:8]))
	}
	return ordered, nil
}

// withSpinner runs fn, showing a spinner with a refreshed message when
// enabled.
func (c *CLI) withSpinner(ctx context.Context, enabled bool, message func() string, fn func() error) error {
	if !enabled {
		return fn()
	}
	sp := newSpinner(ctx, os.Stderr, message())
	sp.Start()
	defer sp.Stop()

	done := make(chan error, 1)
	go func() { done <- fn() }()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			sp.SetMessage("%s", message())
		}
	}
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
