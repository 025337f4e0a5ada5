package validate_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/validate"
)

// memStorage is an in-memory specs.Storage keyed by absolute path.
type memStorage struct {
	mu         sync.Mutex
	files      map[string]string
	unreadable map[string]bool
	listErr    error
	reads      int
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string]string), unreadable: make(map[string]bool)}
}

func (m *memStorage) put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

func (m *memStorage) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.unreadable[path] {
		return "", fmt.Errorf("reading %s: %w", path, fs.ErrPermission)
	}
	content, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("reading %s: %w", path, fs.ErrNotExist)
	}
	return content, nil
}

func (m *memStorage) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for path := range m.files {
		if filepath.Dir(path) == dir {
			names = append(names, filepath.Base(path))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStorage) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		return true, nil
	}
	for p := range m.files {
		if strings.HasPrefix(p, path+"/") {
			return true, nil
		}
	}
	return false, nil
}

var errListing = errors.New("listing failed")

// lengthEstimator counts one token per byte so tests can size documents
// exactly.
func lengthEstimator(text string) int { return len(text) }

// specAt returns a spec rooted at /specs/<name>.
func specAt(name string) *specs.Spec {
	dir := "/specs/" + name
	return &specs.Spec{
		Path:     name,
		FullPath: dir,
		FilePath: dir + "/README.md",
		Name:     name,
		Title:    name,
	}
}

// countContaining returns how many issues mention every substring.
func countContaining(issues []validate.Issue, subs ...string) int {
	n := 0
	for _, is := range issues {
		all := true
		for _, s := range subs {
			if !strings.Contains(is.Message, s) {
				all = false
				break
			}
		}
		if all {
			n++
		}
	}
	return n
}

func assertPassed(t *testing.T, r *validate.Result, want bool) {
	t.Helper()
	if r.Passed != want {
		t.Errorf("Passed = %v, want %v (errors: %+v)", r.Passed, want, r.Errors)
	}
	if r.Passed != (len(r.Errors) == 0) {
		t.Errorf("Passed = %v is inconsistent with %d errors", r.Passed, len(r.Errors))
	}
}
