// Package render draws a resolved package as a dependency star graph:
// the package in the center, kept dependencies as solid nodes, skipped
// declarations as dashed grey nodes annotated with their skip reason.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"piprobe/pkg/puller"
)

// ToDOT converts a resolve result to Graphviz DOT format.
// The resulting DOT string can be rendered with [ToSVG].
func ToDOT(pkg string, res *puller.Result) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [style=\"rounded,filled,bold\", fillcolor=lightblue];\n", pkg)

	for _, dep := range res.Deps {
		fmt.Fprintf(&buf, "  %q;\n", dep)
	}
	for _, skip := range res.Skipped {
		label := fmt.Sprintf("%s\n(%s)", skip.Name, skip.Reason)
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey, fontcolor=black];\n",
			skipNodeID(skip), label)
	}

	buf.WriteString("\n")
	for _, dep := range res.Deps {
		fmt.Fprintf(&buf, "  %q -> %q;\n", pkg, dep)
	}
	for _, skip := range res.Skipped {
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", pkg, skipNodeID(skip))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// skipNodeID keeps a skipped declaration from colliding with a kept
// dependency of the same project name (possible when only one marker
// variant applies).
func skipNodeID(skip puller.Skip) string {
	return skip.Name + "?" + strings.ReplaceAll(string(skip.Reason), " ", "_")
}

// ToSVG renders a DOT graph to SVG using Graphviz.
func ToSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
