// Package puller implements the installer helper at the heart of piprobe:
// optionally install one package into a target directory via the external
// installer, then inspect the installed-distribution metadata there and
// report the package's declared dependencies and top-level module names.
//
// The flow is deliberately linear: one optional subprocess invocation,
// then filesystem scans. All "hard" parsing lives in pkg/pep508 and
// pkg/distinfo.
package puller

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"piprobe/pkg/cache"
	"piprobe/pkg/distinfo"
	"piprobe/pkg/errors"
	"piprobe/pkg/observability"
	"piprobe/pkg/pep508"
)

// Defaults for the fixed directories the original deployment used.
const (
	DefaultInstaller = "pip3"
	DefaultTarget    = "/host/files"
	DefaultCacheDir  = "/tmp/.cache"
)

// Event is the invocation contract: a package specifier and whether the
// install step can be skipped.
type Event struct {
	Pkg              string `json:"pkg"`
	AlreadyInstalled bool   `json:"alreadyInstalled"`
}

// Result is the outcome of one resolve: the marker-filtered dependency
// set, the ordered top-level module names, and any dependencies that were
// skipped with the reason they were skipped.
type Result struct {
	Deps     []string `json:"Deps"`
	TopLevel []string `json:"TopLevel"`
	Skipped  []Skip   `json:"Skipped,omitempty"`
}

// SkipReason names why a declared dependency was excluded from Deps.
type SkipReason string

const (
	// SkipMarkerFalse: the marker evaluated cleanly to false
	// (including extras, since the active extra is always empty).
	SkipMarkerFalse SkipReason = "marker false"

	// SkipUndefinedVariable: the marker referenced a variable outside
	// the environment. The original swallowed these silently; here the
	// skip is recorded so callers and tests can observe it.
	SkipUndefinedVariable SkipReason = "undefined marker variable"
)

// Skip records one excluded dependency declaration.
type Skip struct {
	Name   string     `json:"name"`
	Marker string     `json:"marker"`
	Reason SkipReason `json:"reason"`
}

// Options configures a Puller. Zero fields fall back to the package
// defaults.
type Options struct {
	Installer string // external installer binary (default pip3)
	Target    string // directory packages are installed into
	CacheDir  string // installer's download cache directory

	// Env is the marker environment snapshot used for dependency
	// filtering. It is captured once at construction; evaluation never
	// reads ambient process state.
	Env pep508.Environment

	// Results caches resolve outcomes keyed by specifier and
	// environment. Nil disables caching.
	Results   cache.Cache
	ResultTTL time.Duration

	Logger *log.Logger
}

// Puller installs and inspects packages. Safe for sequential use; callers
// that run concurrent resolves must give each invocation its own target
// directory (see [Puller.WithTarget]).
type Puller struct {
	opts Options
}

// New creates a Puller, applying defaults for unset options.
func New(opts Options) *Puller {
	if opts.Installer == "" {
		opts.Installer = DefaultInstaller
	}
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	if opts.CacheDir == "" {
		opts.CacheDir = DefaultCacheDir
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Puller{opts: opts}
}

// Target returns the directory this Puller installs into.
func (p *Puller) Target() string { return p.opts.Target }

// WithTarget returns a copy of the Puller that installs into and scans a
// different target directory. Serve mode uses this to give each
// invocation an isolated directory.
func (p *Puller) WithTarget(dir string) *Puller {
	opts := p.opts
	opts.Target = dir
	return &Puller{opts: opts}
}

// Resolve executes one event: install unless already installed, then scan
// the target directory's metadata. On install failure no partial result
// is returned.
func (p *Puller) Resolve(ctx context.Context, ev Event) (*Result, error) {
	if err := errors.ValidateSpecifier(ev.Pkg); err != nil {
		return nil, err
	}

	if ev.AlreadyInstalled {
		if res, ok := p.cachedResult(ctx, ev.Pkg); ok {
			return res, nil
		}
	} else {
		if err := p.install(ctx, ev.Pkg); err != nil {
			return nil, err
		}
	}

	res, err := p.inspect(ctx, ev.Pkg)
	if err != nil {
		return nil, err
	}

	p.storeResult(ctx, ev.Pkg, res)
	return res, nil
}

// inspect scans the target directory for distribution metadata and builds
// the result. A target with no metadata folder yields an empty result.
func (p *Puller) inspect(ctx context.Context, pkg string) (*Result, error) {
	res := &Result{Deps: []string{}, TopLevel: []string{}}

	infoDirs, err := distinfo.Find(p.opts.Target)
	if err != nil {
		observability.Puller().OnScanComplete(ctx, pkg, 0, 0, 0, err)
		return nil, err
	}
	if len(infoDirs) == 0 {
		observability.Puller().OnScanComplete(ctx, pkg, 0, 0, 0, nil)
		return res, nil
	}

	// The scan is sorted, so picking the last match is deterministic.
	// More than one match means the target directory is shared.
	infoDir := infoDirs[len(infoDirs)-1]
	if len(infoDirs) > 1 {
		p.opts.Logger.Warn("multiple metadata folders in target, using last",
			"target", p.opts.Target, "count", len(infoDirs), "chosen", infoDir)
	}

	reqs, err := distinfo.Requirements(infoDir)
	if err != nil {
		observability.Puller().OnScanComplete(ctx, pkg, 0, 0, 0, err)
		return nil, errors.Wrap(errors.ErrCodeMetadataUnreadable, err, "read metadata in %s", infoDir)
	}

	res.Deps, res.Skipped = p.filter(reqs)

	topLevel, err := distinfo.TopLevel(infoDir)
	if err != nil {
		observability.Puller().OnScanComplete(ctx, pkg, 0, 0, 0, err)
		return nil, errors.Wrap(errors.ErrCodeMetadataUnreadable, err, "read top-level names in %s", infoDir)
	}
	if topLevel != nil {
		res.TopLevel = topLevel
	}

	observability.Puller().OnScanComplete(ctx, pkg, len(res.Deps), len(res.TopLevel), len(res.Skipped), nil)
	return res, nil
}

// filter evaluates each requirement's marker against the environment
// snapshot. Kept names are normalized, deduplicated, and sorted; the set
// semantics make the order irrelevant, sorting just keeps output stable.
func (p *Puller) filter(reqs []pep508.Requirement) (deps []string, skipped []Skip) {
	deps = []string{}
	seen := make(map[string]bool)

	for i := range reqs {
		req := &reqs[i]
		name := req.ProjectName()

		if req.Marker != nil {
			ok, err := req.Marker.Eval(&p.opts.Env)
			if err != nil {
				var undef *pep508.UndefinedError
				if stderrors.As(err, &undef) {
					p.opts.Logger.Debug("skipping dependency with undefined marker variable",
						"dep", name, "variable", undef.Name)
					skipped = append(skipped, Skip{Name: name, Marker: req.Marker.String(), Reason: SkipUndefinedVariable})
					continue
				}
				// Parse already validated the marker; anything else is unexpected.
				p.opts.Logger.Warn("marker evaluation failed", "dep", name, "err", err)
				skipped = append(skipped, Skip{Name: name, Marker: req.Marker.String(), Reason: SkipUndefinedVariable})
				continue
			}
			if !ok {
				skipped = append(skipped, Skip{Name: name, Marker: req.Marker.String(), Reason: SkipMarkerFalse})
				continue
			}
		}

		if !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}

	sort.Strings(deps)
	return deps, skipped
}

// resultKey ties a cached result to the specifier and the environment it
// was filtered against.
func (p *Puller) resultKey(pkg string) string {
	return cache.Key("resolve", pkg, p.opts.Env)
}

func (p *Puller) cachedResult(ctx context.Context, pkg string) (*Result, bool) {
	if p.opts.Results == nil {
		return nil, false
	}
	key := p.resultKey(pkg)
	data, ok, err := p.opts.Results.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnMiss(ctx, key)
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		observability.Cache().OnMiss(ctx, key)
		return nil, false
	}
	observability.Cache().OnHit(ctx, key)
	return &res, true
}

func (p *Puller) storeResult(ctx context.Context, pkg string, res *Result) {
	if p.opts.Results == nil {
		return
	}
	key := p.resultKey(pkg)
	data, err := json.Marshal(res)
	if err == nil {
		err = p.opts.Results.Set(ctx, key, data, p.opts.ResultTTL)
	}
	observability.Cache().OnStore(ctx, key, err)
	if err != nil {
		p.opts.Logger.Debug("result cache store failed", "pkg", pkg, "err", err)
	}
}
