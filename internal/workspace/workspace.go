// Package workspace ties one project root to its configuration, its
// specs directory, and a validation runner. The CLI, the MCP tools, the
// HTTP API and the watcher all go through a Workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/history"
	"github.com/HendryAvila/specgate/internal/logger"
	"github.com/HendryAvila/specgate/internal/markdown"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/tokens"
	"github.com/HendryAvila/specgate/internal/validate"
)

// Options configures Open. Zero values select the disk implementations.
type Options struct {
	Concurrency int
	Store       config.Store
	Storage     specs.Storage
	Logger      *slog.Logger
}

// Workspace is an opened project.
type Workspace struct {
	root    string
	cfg     *config.ProjectConfig
	storage specs.Storage
	loader  *specs.Loader
	opts    Options
	log     *slog.Logger
}

// Open loads the configuration of root, falling back to the defaults
// when the project is not initialized.
func Open(root string, opts Options) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	if opts.Store == nil {
		opts.Store = config.NewFileStore()
	}
	if opts.Storage == nil {
		opts.Storage = specs.NewFileStorage()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = validate.DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logger.ForComponent("workspace")
	}

	cfg, err := config.LoadOrDefault(opts.Store, abs)
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		root:    abs,
		cfg:     cfg,
		storage: opts.Storage,
		opts:    opts,
		log:     opts.Logger,
	}
	w.loader = specs.NewLoader(opts.Storage, w.SpecsDir(), cfg.PrimaryDocument, cfg.Exclude)
	return w, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string { return w.root }

// Project returns the name history records runs under.
func (w *Workspace) Project() string { return filepath.Base(w.root) }

// Config returns the effective configuration.
func (w *Workspace) Config() *config.ProjectConfig { return w.cfg }

// Loader returns the spec loader.
func (w *Workspace) Loader() *specs.Loader { return w.loader }

// Storage returns the storage specs are read through.
func (w *Workspace) Storage() specs.Storage { return w.storage }

// SpecsDir returns the absolute specs directory.
func (w *Workspace) SpecsDir() string {
	if filepath.IsAbs(w.cfg.SpecsDir) {
		return filepath.Clean(w.cfg.SpecsDir)
	}
	return filepath.Join(w.root, filepath.FromSlash(w.cfg.SpecsDir))
}

// ─── Discovery ──────────────────────────────────────────────────────────────

// Discover lists every spec of the project.
func (w *Workspace) Discover(ctx context.Context) ([]*specs.Spec, error) {
	return w.loader.Discover(ctx)
}

// List returns the specs whose status matches status. An empty status
// matches every spec; the comparison ignores case.
func (w *Workspace) List(ctx context.Context, status string) ([]*specs.Spec, error) {
	all, err := w.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	var out []*specs.Spec
	for _, s := range all {
		if strings.EqualFold(s.Status, status) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Find resolves one spec reference.
func (w *Workspace) Find(ctx context.Context, ref string) (*specs.Spec, error) {
	return w.loader.Find(ctx, ref)
}

// Resolve turns refs into specs, in order and without duplicates. No
// refs means every spec.
func (w *Workspace) Resolve(ctx context.Context, refs []string) ([]*specs.Spec, error) {
	all, err := w.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return all, nil
	}

	seen := make(map[string]bool, len(refs))
	var out []*specs.Spec
	for _, ref := range refs {
		s, err := specs.Match(all, ref)
		if err != nil {
			return nil, err
		}
		if seen[s.Path] {
			continue
		}
		seen[s.Path] = true
		out = append(out, s)
	}
	return out, nil
}

// Owner returns the spec that owns file, the nearest directory at or
// above file that holds the primary document. It returns
// specs.ErrNotFound for files outside the specs directory or in an
// excluded or hidden directory.
func (w *Workspace) Owner(ctx context.Context, file string) (*specs.Spec, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", file, err)
	}
	root := w.SpecsDir()
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: %s is outside %s", specs.ErrNotFound, file, root)
	}

	parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, p := range parts {
		if strings.HasPrefix(p, ".") && p != "." {
			return nil, fmt.Errorf("%w: %s is in a hidden directory", specs.ErrNotFound, file)
		}
	}

	for dir := filepath.Dir(abs); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		ok, err := w.storage.Exists(ctx, filepath.Join(dir, w.cfg.PrimaryDocument))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		dirRel, _ := filepath.Rel(root, dir)
		if w.excludedPath(filepath.ToSlash(dirRel)) {
			break
		}
		return w.loader.Load(ctx, dir)
	}
	return nil, fmt.Errorf("%w: no spec owns %s", specs.ErrNotFound, file)
}

// excludedPath reports whether rel or any of its parents is excluded.
func (w *Workspace) excludedPath(rel string) bool {
	for p := rel; p != "." && p != ""; p = filepath.ToSlash(filepath.Dir(p)) {
		if w.loader.Excluded(p) {
			return true
		}
	}
	return false
}

// ─── Validation ─────────────────────────────────────────────────────────────

// ValidateOptions overrides configuration for one validation. Nil
// fields keep the configured value.
type ValidateOptions struct {
	Strict               *bool
	CheckCrossReferences *bool
}

// Runner builds a validation runner from the configuration and vo.
func (w *Workspace) Runner(vo ValidateOptions) (*validate.Runner, error) {
	opts, err := w.cfg.RunnerOptions(w.opts.Concurrency)
	if err != nil {
		return nil, err
	}
	if vo.Strict != nil {
		opts.Structure.Strict = *vo.Strict
	}
	if vo.CheckCrossReferences != nil {
		opts.SubSpecs.CheckCrossReferences = *vo.CheckCrossReferences
	}
	return validate.NewRunner(w.storage, opts), nil
}

// Validate validates the specs named by refs, or every spec when refs
// is empty.
func (w *Workspace) Validate(ctx context.Context, refs []string, vo ValidateOptions) (*validate.Report, error) {
	list, err := w.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	runner, err := w.Runner(vo)
	if err != nil {
		return nil, err
	}

	rep := runner.ValidateAll(ctx, list)
	w.log.Info("validated specs",
		"specs", len(rep.Specs),
		"passed", rep.Passed,
		"errors", rep.ErrorCount,
		"warnings", rep.WarningCount,
	)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// ValidateSpec validates a single, already resolved spec.
func (w *Workspace) ValidateSpec(ctx context.Context, spec *specs.Spec, vo ValidateOptions) (*validate.SpecReport, error) {
	runner, err := w.Runner(vo)
	if err != nil {
		return nil, err
	}
	rep := runner.ValidateSpec(ctx, spec)
	w.log.Debug("validated spec", "spec", spec.Path, "passed", rep.Passed, "duration", rep.Duration)
	return rep, nil
}

// ─── Recording ──────────────────────────────────────────────────────────────

// Recorder stores validation runs. *history.Store implements it.
type Recorder interface {
	Record(p history.RecordParams) (string, error)
}

// Record stores every spec report of rep. A nil recorder records
// nothing. The first failure stops recording and is returned.
func (w *Workspace) Record(rec Recorder, reports ...*validate.SpecReport) ([]string, error) {
	if rec == nil {
		return nil, nil
	}
	ids := make([]string, 0, len(reports))
	for _, sr := range reports {
		id, err := rec.Record(history.ParamsFromReport(w.Project(), sr))
		if err != nil {
			w.log.Warn("recording validation run failed", "spec", sr.Spec.Path, "error", err)
			return ids, fmt.Errorf("recording %s: %w", sr.Spec.Path, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ─── Details ────────────────────────────────────────────────────────────────

// TokenReport is the token size of a spec and its sub-specs.
type TokenReport struct {
	Spec          *specs.Spec            `json:"spec"`
	Estimator     string                 `json:"estimator"`
	PrimaryTokens int                    `json:"primaryTokens"`
	SubSpecs      []validate.SubSpecSize `json:"subSpecs"`
	Total         int                    `json:"total"`
	Thresholds    config.SubSpecConfig   `json:"thresholds"`
}

// Tokens measures the spec named by ref.
func (w *Workspace) Tokens(ctx context.Context, ref string) (*TokenReport, error) {
	spec, err := w.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	runner, err := w.Runner(ValidateOptions{})
	if err != nil {
		return nil, err
	}
	est, err := tokens.ByName(w.cfg.TokenEstimator)
	if err != nil {
		return nil, err
	}

	tr := &TokenReport{
		Spec:       spec,
		Estimator:  strings.ToLower(w.cfg.TokenEstimator),
		SubSpecs:   runner.SubSpecs().Measure(ctx, spec),
		Thresholds: w.cfg.SubSpecs,
	}
	if raw, err := w.storage.ReadFile(ctx, spec.FilePath); err == nil {
		tr.PrimaryTokens = est(raw)
	}
	if tr.SubSpecs == nil {
		tr.SubSpecs = []validate.SubSpecSize{}
	}
	tr.Total = tr.PrimaryTokens
	for _, s := range tr.SubSpecs {
		tr.Total += s.Tokens
	}
	return tr, nil
}

// Detail is a spec with its frontmatter, summary and sub-spec names.
type Detail struct {
	Spec        *specs.Spec      `json:"spec"`
	Frontmatter map[string]any   `json:"frontmatter,omitempty"`
	Summary     markdown.Summary `json:"summary"`
	SubSpecs    []string         `json:"subSpecs"`
}

// Describe loads the detail view of the spec named by ref.
func (w *Workspace) Describe(ctx context.Context, ref string) (*Detail, error) {
	spec, err := w.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	runner, err := w.Runner(ValidateOptions{})
	if err != nil {
		return nil, err
	}

	d := &Detail{
		Spec:        spec,
		Frontmatter: spec.FrontmatterMap(),
		SubSpecs:    runner.SubSpecs().List(ctx, spec),
	}
	if d.SubSpecs == nil {
		d.SubSpecs = []string{}
	}
	raw, err := w.storage.ReadFile(ctx, spec.FilePath)
	if err != nil {
		return d, nil
	}
	_, body, err := markdown.SplitFrontmatter(raw)
	if err != nil {
		body = raw
	}
	d.Summary = markdown.Summarize(body)
	return d, nil
}

// IsNotFound reports whether err means a spec reference did not match.
func IsNotFound(err error) bool {
	return errors.Is(err, specs.ErrNotFound)
}

// IsAmbiguous reports whether err means a spec reference matched more
// than one spec.
func IsAmbiguous(err error) bool {
	return errors.Is(err, specs.ErrAmbiguous)
}
