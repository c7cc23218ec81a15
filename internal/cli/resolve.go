package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depfetch/pkg/coord"
	"github.com/matzehuels/depfetch/pkg/errors"
	"github.com/matzehuels/depfetch/pkg/render/nodelink"
	"github.com/matzehuels/depfetch/pkg/resolve"
)

func (c *CLI) resolveCommand() *cobra.Command {
	var asJSON bool
	progress := stderrIsTerminal()

	cmd := &cobra.Command{
		Use:   "resolve [coordinate...]",
		Short: "List the transitive dependency set without downloading artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.resolveSession(cmd.Context(), args, progress)
			if err != nil {
				return err
			}
			defer s.close()

			deps := s.mgr.Dependencies()
			if asJSON {
				enc := json.NewEncoder(c.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(deps)
			}

			rows := make([]depRow, len(deps))
			for i, d := range deps {
				rows[i] = depRow{Coord: d}
			}
			fmt.Fprintln(c.Out, dependencyTable(rows))
			g := s.mgr.Graph()
			c.printStats(fmt.Sprintf("%d dependencies", len(deps)), fmt.Sprintf("%d edges", g.EdgeCount()), fmt.Sprintf("%d roots", len(g.Sources())))
			if g.HasCycle() {
				c.printWarning("descriptor graph contains a cycle")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print coordinates as JSON")
	cmd.Flags().BoolVar(&progress, "progress", progress, "show a spinner while resolving")
	return cmd
}

type treeOptions struct {
	dot      string
	svg      string
	scopes   bool
	rankdir  string
	progress bool
}

func (c *CLI) treeCommand() *cobra.Command {
	opts := treeOptions{progress: stderrIsTerminal()}

	cmd := &cobra.Command{
		Use:   "tree [coordinate...]",
		Short: "Print or render the resolution graph",
		Example: `  depfetch tree org.slf4j:slf4j-simple:2.0.13
  depfetch tree -m deps.toml --svg deps.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.resolveSession(ctx, args, opts.progress)
			if err != nil {
				return err
			}
			defer s.close()
			g := s.mgr.Graph()

			if opts.dot == "" && opts.svg == "" {
				printTree(c.Out, g, opts.scopes)
				return nil
			}
			dot := nodelink.ToDOT(g, nodelink.Options{Scopes: opts.scopes, RankDir: opts.rankdir})
			if opts.dot != "" {
				if err := os.WriteFile(opts.dot, []byte(dot), 0o644); err != nil {
					return err
				}
				c.printFile(opts.dot)
			}
			if opts.svg != "" {
				svg, err := nodelink.RenderSVG(ctx, dot)
				if err != nil {
					return err
				}
				if err := os.WriteFile(opts.svg, svg, 0o644); err != nil {
					return err
				}
				c.printFile(opts.svg)
			}
			c.printSuccess("Rendered %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dot, "dot", "", "write Graphviz DOT source to this file")
	f.StringVar(&opts.svg, "svg", "", "render the graph as SVG to this file")
	f.BoolVar(&opts.scopes, "scopes", false, "show dependency scopes")
	f.StringVar(&opts.rankdir, "rankdir", "TB", "graph direction for --dot/--svg (TB or LR)")
	f.BoolVar(&opts.progress, "progress", opts.progress, "show a spinner while resolving")
	return cmd
}

// resolveSession builds a session and resolves every root transitively.
func (c *CLI) resolveSession(ctx context.Context, args []string, spinner bool) (*session, error) {
	s, err := c.newSession(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(s.mgr.Dependencies()) == 0 {
		s.close()
		return nil, errors.New(errors.ErrCodeConfiguration, "no dependencies: pass coordinates or --manifest")
	}

	prog := newProgress(c.Logger)
	err = c.withSpinner(ctx, spinner, func() string {
		return fmt.Sprintf("Resolving dependencies (%d found)", len(s.mgr.Dependencies()))
	}, func() error {
		return s.mgr.ResolveAll(ctx, s.repos)
	})
	if err != nil {
		s.close()
		return nil, err
	}
	prog.done(fmt.Sprintf("Resolved %d dependencies", len(s.mgr.Dependencies())))
	return s, nil
}

// printTree writes the graph as an indented tree from each root. A node
// already printed is shown once more with a marker and not expanded again.
func printTree(w io.Writer, g *resolve.Graph, scopes bool) {
	seen := make(map[string]bool)
	scopeOf := make(map[[2]string]coord.Scope)
	for _, e := range g.Edges() {
		scopeOf[[2]string{e.From, e.To}] = e.Scope
	}

	var walk func(id, parent, prefix string, last bool, depth int)
	walk = func(id, parent, prefix string, last bool, depth int) {
		line := id
		if depth > 0 {
			branch := "├── "
			if last {
				branch = "└── "
			}
			line = prefix + branch + id
			if scope := scopeOf[[2]string{parent, id}]; scopes || !scope.MustDownload() {
				line += " " + StyleDim.Render("("+scope.String()+")")
			}
		}
		if seen[id] {
			fmt.Fprintln(w, line+" "+StyleDim.Render("(*)"))
			return
		}
		seen[id] = true
		fmt.Fprintln(w, line)

		children := g.Children(id)
		childPrefix := prefix
		if depth > 0 {
			if last {
				childPrefix += "    "
			} else {
				childPrefix += "│   "
			}
		}
		for i, ch := range children {
			walk(ch, id, childPrefix, i == len(children)-1, depth+1)
		}
	}

	roots := g.Sources()
	if len(roots) == 0 {
		// every node sits on a cycle; start from insertion order
		for _, n := range g.Nodes() {
			roots = append(roots, n.ID)
		}
	}
	for _, r := range roots {
		if !seen[r] {
			walk(r, "", "", true, 0)
		}
	}
	if len(roots) == 0 {
		fmt.Fprintln(w, strings.TrimSpace(StyleDim.Render("(empty)")))
	}
}
