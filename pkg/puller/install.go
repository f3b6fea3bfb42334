package puller

import (
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"piprobe/pkg/errors"
	"piprobe/pkg/observability"
)

// install invokes the external installer for one package:
//
//	<installer> install --no-deps <pkg> --cache-dir <cacheDir> -t <target>
//
// The subprocess runs under the caller's context, so deadlines and
// cancellation propagate to it. Its standard output is surfaced as a
// diagnostic; transitive dependencies are never installed.
func (p *Puller) install(ctx context.Context, pkg string) error {
	p.opts.Logger.Info("installing package", "pkg", pkg, "target", p.opts.Target)
	observability.Puller().OnInstallStart(ctx, pkg)
	start := time.Now()

	cmd := exec.CommandContext(ctx, p.opts.Installer,
		"install", "--no-deps", pkg,
		"--cache-dir", p.opts.CacheDir,
		"-t", p.opts.Target,
	)

	out, err := cmd.Output()
	observability.Puller().OnInstallComplete(ctx, pkg, time.Since(start), err)

	if diag := strings.TrimSpace(string(out)); diag != "" {
		p.opts.Logger.Debug("installer output", "pkg", pkg)
		for _, line := range strings.Split(diag, "\n") {
			p.opts.Logger.Debug("  " + line)
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			detail := strings.TrimSpace(string(exitErr.Stderr))
			if detail == "" {
				detail = exitErr.String()
			}
			return errors.Wrap(errors.ErrCodeInstallFailed, err,
				"%s install %s exited with %d: %s", p.opts.Installer, pkg, exitErr.ExitCode(), detail)
		}
		return errors.Wrap(errors.ErrCodeInstallStart, err, "start %s", p.opts.Installer)
	}

	p.opts.Logger.Info("installed package", "pkg", pkg, "took", time.Since(start).Round(time.Millisecond))
	return nil
}
