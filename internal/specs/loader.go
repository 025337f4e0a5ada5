package specs

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/HendryAvila/specgate/internal/markdown"
)

// DefaultPrimaryDocument is the primary document name used when none is
// configured.
const DefaultPrimaryDocument = "README.md"

// Loader finds specs below a specs directory.
type Loader struct {
	storage  Storage
	root     string
	primary  string
	excludes []string
}

// NewLoader creates a Loader for the specs directory root. Exclude
// patterns are doublestar globs matched against slash-separated paths
// relative to root.
func NewLoader(storage Storage, root, primaryDocument string, excludes []string) *Loader {
	if primaryDocument == "" {
		primaryDocument = DefaultPrimaryDocument
	}
	return &Loader{
		storage:  storage,
		root:     root,
		primary:  primaryDocument,
		excludes: excludes,
	}
}

// Root returns the specs directory.
func (l *Loader) Root() string { return l.root }

// PrimaryDocument returns the configured primary document name.
func (l *Loader) PrimaryDocument() string { return l.primary }

// Discover returns every spec below the specs directory, sorted by Path.
// Nested specs are included. Hidden and excluded directories are skipped.
func (l *Loader) Discover(ctx context.Context) ([]*Spec, error) {
	var found []*Spec
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == l.root {
				return err
			}
			// Unreadable subtrees are skipped.
			return fs.SkipDir
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() || p == l.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if l.Excluded(rel) {
			return fs.SkipDir
		}

		ok, err := l.storage.Exists(ctx, filepath.Join(p, l.primary))
		if err != nil || !ok {
			return nil
		}
		s, err := l.load(ctx, p, rel)
		if err != nil {
			return err
		}
		found = append(found, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering specs in %s: %w", l.root, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// Excluded reports whether the directory at rel (slash-separated,
// relative to the specs dir) matches an exclude pattern.
func (l *Loader) Excluded(rel string) bool {
	for _, pattern := range l.excludes {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
		if match, _ := doublestar.Match(pattern, path.Join(rel, l.primary)); match {
			return true
		}
	}
	return false
}

// Load describes the spec in dir, which must contain the primary
// document.
func (l *Loader) Load(ctx context.Context, dir string) (*Spec, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	rel, err := filepath.Rel(l.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(abs)
	}
	return l.load(ctx, abs, filepath.ToSlash(rel))
}

func (l *Loader) load(ctx context.Context, dir, rel string) (*Spec, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	s := &Spec{
		Path:     rel,
		FullPath: abs,
		FilePath: filepath.Join(abs, l.primary),
		Name:     filepath.Base(abs),
	}
	s.Title = s.Name

	raw, err := l.storage.ReadFile(ctx, s.FilePath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The validators report unreadable documents; discovery only
		// needs the directory.
		return s, nil
	}

	fm, body, err := markdown.SplitFrontmatter(raw)
	if err != nil {
		body = raw
	} else {
		s.applyFrontmatter(fm)
	}
	if s.Title == s.Name {
		if title := markdown.Summarize(body).Title; title != "" {
			s.Title = title
		}
	}
	return s, nil
}

// Find resolves ref to a single spec. A ref matches a spec by exact
// Path, by directory Name, or, when ref is all digits, by a Name that
// starts with ref followed by "-" (e.g. "001" for "001-auth").
func (l *Loader) Find(ctx context.Context, ref string) (*Spec, error) {
	all, err := l.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return Match(all, ref)
}

// Match resolves ref against an already discovered list.
func Match(all []*Spec, ref string) (*Spec, error) {
	ref = strings.Trim(filepath.ToSlash(strings.TrimSpace(ref)), "/")
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	for _, s := range all {
		if s.Path == ref {
			return s, nil
		}
	}

	var matches []*Spec
	for _, s := range all {
		if s.Name == ref || (isDigits(ref) && strings.HasPrefix(s.Name, ref+"-")) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		paths := make([]string, len(matches))
		for i, s := range matches {
			paths[i] = s.Path
		}
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, ref, strings.Join(paths, ", "))
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
