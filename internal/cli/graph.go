package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"piprobe/pkg/puller"
	"piprobe/pkg/render"
)

// graphCommand creates the graph command: render a resolved package as a
// dependency star graph. By default it inspects an already-installed
// package; --install pulls it first.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		install bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "graph <package>",
		Short: "Render a package's dependencies as a star graph",
		Long: `Graph resolves a package and renders it as a star graph: the package
in the center, kept dependencies as solid nodes, marker-skipped
declarations as dashed nodes.

The output format follows the file extension: .svg renders via Graphviz,
anything else (or stdout) emits DOT.

Examples:
  piprobe graph requests                  # DOT to stdout
  piprobe graph requests -o deps.svg      # rendered SVG
  piprobe graph requests --install        # install first, then render`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.newPuller(cmd.Context(), false, false)
			if err != nil {
				return err
			}

			ev := puller.Event{Pkg: args[0], AlreadyInstalled: !install}
			res, err := p.Resolve(cmd.Context(), ev)
			if err != nil {
				return err
			}

			dot := render.ToDOT(ev.Pkg, res)

			if output == "" {
				fmt.Print(dot)
				return nil
			}

			data := []byte(dot)
			if filepath.Ext(output) == ".svg" {
				if data, err = render.ToSVG(cmd.Context(), dot); err != nil {
					return err
				}
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			printSuccess("Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&install, "install", false, "install the package before rendering")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
