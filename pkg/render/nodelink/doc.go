// Package nodelink renders a resolution graph as a node-link diagram.
//
// Coordinates appear as rounded boxes and declared dependencies as arrows
// from parent to child. Roots (coordinates nobody depends on) are filled,
// and dependencies that are not downloaded at runtime (test, provided,
// system, import) are drawn dashed.
//
// # Usage
//
//	dot := nodelink.ToDOT(m.Graph(), nodelink.Options{Scopes: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [ToDOT] output can also be saved and fed to external Graphviz tools.
// [RenderSVG] renders in process with [github.com/goccy/go-graphviz].
package nodelink
