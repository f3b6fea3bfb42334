package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"piprobe/pkg/puller"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	installed   bool   // skip the install step
	jsonOut     bool   // emit the raw result as JSON
	interactive bool   // browse the result in a TUI
	noCache     bool   // bypass the result cache
	probe       bool   // probe python3 for real marker values
	verbose     bool   // debug logging
	target      string // override target directory
	pipCache    string // override installer cache directory
	installer   string // override installer binary
}

// resolveCommand creates the resolve command: install one package (unless
// --installed) and report its dependencies and top-level modules.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts

	cmd := &cobra.Command{
		Use:   "resolve <package>",
		Short: "Install a package and report its dependencies and top-level modules",
		Long: `Resolve installs a single package without its transitive dependencies,
then scans the target directory's installed-distribution metadata and
reports the declared dependencies (filtered by environment markers) and
the top-level importable module names.

Examples:
  piprobe resolve requests               # install into the target dir, then inspect
  piprobe resolve requests --installed   # inspect only, skip the install step
  piprobe resolve flask==3.0.0 --json    # machine-readable output
  piprobe resolve requests -i            # browse the result interactively`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				c.SetLogLevel(LogDebug)
			}
			c.applyOverrides(opts.installer, opts.target, opts.pipCache)

			p, err := c.newPuller(cmd.Context(), opts.noCache, opts.probe)
			if err != nil {
				return err
			}

			ev := puller.Event{Pkg: args[0], AlreadyInstalled: opts.installed}

			var spinner *Spinner
			if !opts.installed && !opts.jsonOut {
				spinner = newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Installing %s", ev.Pkg))
				spinner.Start()
			}

			res, err := p.Resolve(cmd.Context(), ev)
			if spinner != nil {
				if err != nil {
					spinner.StopWithError(fmt.Sprintf("Install failed: %s", ev.Pkg))
				} else {
					spinner.StopWithSuccess(fmt.Sprintf("Installed %s", ev.Pkg))
				}
			}
			if err != nil {
				return err
			}

			switch {
			case opts.jsonOut:
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case opts.interactive:
				return runInspector(ev.Pkg, res)
			default:
				printResult(ev.Pkg, res)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&opts.installed, "installed", false, "package is already installed; skip the install step")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the result as JSON")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse the result interactively")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the result cache")
	cmd.Flags().BoolVar(&opts.probe, "probe", false, "probe python3 for real marker environment values")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "target directory (default from config)")
	cmd.Flags().StringVar(&opts.pipCache, "pip-cache-dir", "", "installer cache directory (default from config)")
	cmd.Flags().StringVar(&opts.installer, "installer", "", "installer binary (default from config)")

	return cmd
}

// applyOverrides copies non-empty flag values over the loaded config.
func (c *CLI) applyOverrides(installer, target, pipCache string) {
	if installer != "" {
		c.cfg.Installer = installer
	}
	if target != "" {
		c.cfg.TargetDir = target
	}
	if pipCache != "" {
		c.cfg.PipCacheDir = pipCache
	}
}

// printResult renders a resolve result for humans.
func printResult(pkg string, res *puller.Result) {
	fmt.Println(StyleTitle.Render(pkg))

	if len(res.Deps) == 0 {
		printInfo("No dependencies")
	} else {
		printInfo("Dependencies (%d)", len(res.Deps))
		for _, dep := range res.Deps {
			fmt.Println("  " + StyleValue.Render(dep))
		}
	}

	if len(res.TopLevel) == 0 {
		printInfo("No top-level modules")
	} else {
		printInfo("Top-level modules (%d)", len(res.TopLevel))
		for _, name := range res.TopLevel {
			fmt.Println("  " + StyleValue.Render(name))
		}
	}

	for _, skip := range res.Skipped {
		printWarning("skipped %s", skip.Name)
		printDetail("%s (%s)", skip.Marker, skip.Reason)
	}
}
