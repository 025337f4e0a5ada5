package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/specgate/internal/configlang"
)

// --- Default ---

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.SubSpecs.GoodThreshold != 2000 || cfg.SubSpecs.WarningThreshold != 3500 || cfg.SubSpecs.ErrorThreshold != 5000 {
		t.Errorf("thresholds = %+v", cfg.SubSpecs)
	}
	if !cfg.SubSpecs.CheckCrossReferences {
		t.Error("CheckCrossReferences should default to true")
	}
	if diff := cmp.Diff([]string{"Overview", "Design"}, cfg.Structure.RequiredSections); diff != "" {
		t.Errorf("RequiredSections mismatch (-want +got):\n%s", diff)
	}
}

func TestDefault_DoesNotAliasValidatorDefaults(t *testing.T) {
	cfg := Default()
	cfg.Structure.RequiredSections[0] = "Changed"
	if Default().Structure.RequiredSections[0] != "Overview" {
		t.Error("mutating one Default() leaked into the next")
	}
}

// --- Parse ---

func TestParse_OverridesDefaults(t *testing.T) {
	src := `# specgate project configuration
specsDir: docs/specs
tokenEstimator: chars
exclude:
  - "**/archived/**"
  - drafts/**
structure:
  strict: true
subSpecs:
  errorThreshold: 8000
  checkCrossReferences: false
unknownKey: ignored
`
	cfg, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.SpecsDir != "docs/specs" || cfg.TokenEstimator != "chars" || cfg.PrimaryDocument != "README.md" {
		t.Errorf("top-level = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"**/archived/**", "drafts/**"}, cfg.Exclude); diff != "" {
		t.Errorf("Exclude mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Structure.Strict || len(cfg.Structure.RequiredSections) != 2 {
		t.Errorf("Structure = %+v", cfg.Structure)
	}
	if cfg.SubSpecs.ErrorThreshold != 8000 || cfg.SubSpecs.GoodThreshold != 2000 || cfg.SubSpecs.CheckCrossReferences {
		t.Errorf("SubSpecs = %+v", cfg.SubSpecs)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
		wantMsg string
	}{
		{"syntax", "specsDir:\n   x: 1\n", configlang.ErrSyntax, "line 2"},
		{"wrong type", "structure:\n  strict: yes\n", ErrInvalid, "strict"},
		{"fractional threshold", "subSpecs:\n  goodThreshold: 1.5\n", ErrInvalid, "goodThreshold"},
		{"threshold order", "subSpecs:\n  goodThreshold: 4000\n", ErrInvalid, "goodThreshold <= warningThreshold"},
		{"zero threshold", "subSpecs:\n  goodThreshold: 0\n", ErrInvalid, "0 < goodThreshold"},
		{"unknown estimator", "tokenEstimator: bpe\n", ErrInvalid, "bpe"},
		{"empty specsDir", "specsDir: ''\n", ErrInvalid, "specsDir"},
		{"sequence root", "- a\n", configlang.ErrSyntax, "mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParse_NullListMeansEmpty(t *testing.T) {
	cfg, err := Parse("structure:\n  requiredSections: ~\n")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Structure.RequiredSections == nil || len(cfg.Structure.RequiredSections) != 0 {
		t.Errorf("RequiredSections = %#v, want empty non-nil", cfg.Structure.RequiredSections)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Exclude = []string{"**/archived/**"}
	cfg.Structure.Strict = true
	cfg.Structure.RequiredSections = []string{}
	cfg.SubSpecs.WarningThreshold = 3000

	got, err := Parse(cfg.Encode())
	if err != nil {
		t.Fatalf("Parse(Encode()) error: %v\n%s", err, cfg.Encode())
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// The written file must stay readable by ordinary YAML tooling.
func TestEncode_IsYAML(t *testing.T) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(Default().Encode()), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	sub, _ := doc["subSpecs"].(map[string]any)
	if sub["errorThreshold"] != 5000 {
		t.Errorf("subSpecs = %v", sub)
	}
}

func TestRunnerOptions(t *testing.T) {
	cfg := Default()
	cfg.TokenEstimator = "chars"
	cfg.Structure.Strict = true

	opts, err := cfg.RunnerOptions(3)
	if err != nil {
		t.Fatalf("RunnerOptions() error: %v", err)
	}
	if opts.Concurrency != 3 || !opts.Structure.Strict || !opts.SubSpecs.CheckCrossReferences {
		t.Errorf("opts = %+v", opts)
	}
	if got := opts.SubSpecs.Estimator("abcdefgh"); got != 2 {
		t.Errorf("estimator(8 chars) = %d, want chars/4 = 2", got)
	}
}

// --- Path helpers ---

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/home/user/project")
	want := filepath.Join("/home/user/project", Dir, ConfigFile)
	if got != want {
		t.Errorf("ConfigPath = %s, want %s", got, want)
	}
}

// --- FileStore ---

func TestFileStore_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewFileStore()

	original := Default()
	original.SpecsDir = "design"
	if err := store.Save(tmpDir, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !Exists(tmpDir) {
		t.Fatal("Exists should return true after Save")
	}

	loaded, err := store.Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(original, loaded); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.SubSpecs.ErrorThreshold = 10
	err := NewFileStore().Save(t.TempDir(), cfg)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Save error = %v, want ErrInvalid", err)
	}
}

func TestFileStore_Load_NotInitialized(t *testing.T) {
	_, err := NewFileStore().Load(t.TempDir())
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Load error = %v, want ErrNotInitialized", err)
	}
}

func TestFileStore_Load_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(DirPath(tmpDir), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(ConfigPath(tmpDir), []byte("not a mapping"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := NewFileStore().Load(tmpDir)
	if err == nil {
		t.Fatal("Load should fail on a corrupt file")
	}
	if !strings.Contains(err.Error(), "parsing config.yaml") {
		t.Errorf("unexpected error: %s", err)
	}

	if _, err := LoadOrDefault(NewFileStore(), tmpDir); err == nil {
		t.Error("LoadOrDefault should surface a corrupt file")
	}
}

func TestLoadOrDefault_NotInitialized(t *testing.T) {
	cfg, err := LoadOrDefault(NewFileStore(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("LoadOrDefault mismatch (-want +got):\n%s", diff)
	}
}

// --- Init ---

func TestInit(t *testing.T) {
	root := t.TempDir()
	cfg, err := Init(NewFileStore(), root, "docs/specs")
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if cfg.SpecsDir != "docs/specs" {
		t.Errorf("SpecsDir = %s", cfg.SpecsDir)
	}
	if info, err := os.Stat(filepath.Join(root, "docs", "specs")); err != nil || !info.IsDir() {
		t.Errorf("specs dir not created: %v", err)
	}

	loaded, err := NewFileStore().Load(root)
	if err != nil {
		t.Fatalf("Load after Init: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}

	if _, err := Init(NewFileStore(), root, ""); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init error = %v, want ErrAlreadyInitialized", err)
	}
}

// --- FindProjectRoot ---

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := NewFileStore().Save(root, Default()); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "specs", "001-auth")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if got != root {
		t.Errorf("FindProjectRoot = %s, want %s", got, root)
	}
}

func TestFindProjectRoot_NoConfigReturnsStart(t *testing.T) {
	start := t.TempDir()
	got, err := FindProjectRoot(start)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if got != start {
		t.Errorf("FindProjectRoot = %s, want %s", got, start)
	}
}

// --- Runtime ---

func TestLoadRuntime(t *testing.T) {
	t.Setenv("SPECGATE_DATA_DIR", "/tmp/sg")
	t.Setenv("SPECGATE_HTTP_ADDR", "")
	t.Setenv("SPECGATE_MAX_CONCURRENCY", "-2")
	t.Setenv("SPECGATE_WATCH_DEBOUNCE", "1s")
	t.Setenv("SPECGATE_API_KEY", "secret")

	rt := LoadRuntime()
	if rt.DataDir != "/tmp/sg" || rt.HTTPAddr != ":8088" || rt.APIKey != "secret" {
		t.Errorf("rt = %+v", rt)
	}
	if rt.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want fallback 4", rt.MaxConcurrency)
	}
	if rt.WatchDebounce != time.Second {
		t.Errorf("WatchDebounce = %v", rt.WatchDebounce)
	}
}
