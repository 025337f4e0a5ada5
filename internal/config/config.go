// Package config holds the per-project specgate configuration stored in
// .specgate/config.yaml and the process-wide runtime settings read from
// the environment.
//
// The project file is written in the configlang grammar. Missing keys
// keep their defaults; unknown keys are ignored so older binaries can read
// newer files.
package config

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/specgate/internal/configlang"
	"github.com/HendryAvila/specgate/internal/tokens"
	"github.com/HendryAvila/specgate/internal/validate"
)

// ErrInvalid wraps every validation failure of a ProjectConfig.
var ErrInvalid = errors.New("invalid configuration")

// ProjectConfig is the content of .specgate/config.yaml.
type ProjectConfig struct {
	SpecsDir        string          `json:"specsDir"`
	PrimaryDocument string          `json:"primaryDocument"`
	TokenEstimator  string          `json:"tokenEstimator"`
	Exclude         []string        `json:"exclude"`
	Structure       StructureConfig `json:"structure"`
	SubSpecs        SubSpecConfig   `json:"subSpecs"`
}

// StructureConfig configures the structure validator.
type StructureConfig struct {
	Strict           bool     `json:"strict"`
	RequiredSections []string `json:"requiredSections"`
}

// SubSpecConfig configures the sub-spec validator.
type SubSpecConfig struct {
	GoodThreshold        int  `json:"goodThreshold"`
	WarningThreshold     int  `json:"warningThreshold"`
	ErrorThreshold       int  `json:"errorThreshold"`
	CheckCrossReferences bool `json:"checkCrossReferences"`
}

// Default returns the configuration used when no file exists.
func Default() *ProjectConfig {
	return &ProjectConfig{
		SpecsDir:        "specs",
		PrimaryDocument: "README.md",
		TokenEstimator:  "words",
		Exclude:         []string{},
		Structure: StructureConfig{
			Strict:           false,
			RequiredSections: append([]string(nil), validate.DefaultRequiredSections...),
		},
		SubSpecs: SubSpecConfig{
			GoodThreshold:        validate.DefaultGoodThreshold,
			WarningThreshold:     validate.DefaultWarningThreshold,
			ErrorThreshold:       validate.DefaultErrorThreshold,
			CheckCrossReferences: true,
		},
	}
}

// Validate checks value ranges and cross-field constraints.
func (c *ProjectConfig) Validate() error {
	if c.SpecsDir == "" {
		return fmt.Errorf("%w: specsDir must not be empty", ErrInvalid)
	}
	if c.PrimaryDocument == "" {
		return fmt.Errorf("%w: primaryDocument must not be empty", ErrInvalid)
	}
	if _, err := tokens.ByName(c.TokenEstimator); err != nil {
		return fmt.Errorf("%w: tokenEstimator: %v", ErrInvalid, err)
	}
	s := c.SubSpecs
	if s.GoodThreshold <= 0 || s.GoodThreshold > s.WarningThreshold || s.WarningThreshold > s.ErrorThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 < goodThreshold <= warningThreshold <= errorThreshold (got %d, %d, %d)",
			ErrInvalid, s.GoodThreshold, s.WarningThreshold, s.ErrorThreshold)
	}
	return nil
}

// RunnerOptions converts the configuration into validator options.
func (c *ProjectConfig) RunnerOptions(concurrency int) (validate.RunnerOptions, error) {
	est, err := tokens.ByName(c.TokenEstimator)
	if err != nil {
		return validate.RunnerOptions{}, err
	}
	return validate.RunnerOptions{
		Structure: validate.StructureOptions{
			RequiredSections: append([]string{}, c.Structure.RequiredSections...),
			Strict:           c.Structure.Strict,
		},
		SubSpecs: validate.SubSpecOptions{
			GoodThreshold:        c.SubSpecs.GoodThreshold,
			WarningThreshold:     c.SubSpecs.WarningThreshold,
			ErrorThreshold:       c.SubSpecs.ErrorThreshold,
			CheckCrossReferences: c.SubSpecs.CheckCrossReferences,
			Estimator:            est,
		},
		Concurrency: concurrency,
	}, nil
}

// ─── Decoding ───────────────────────────────────────────────────────────────

// Parse decodes a config document over the defaults and validates it.
func Parse(source string) (*ProjectConfig, error) {
	m, err := configlang.ParseMapping(source)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := cfg.apply(m); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ProjectConfig) apply(m *configlang.Mapping) error {
	if err := setString(m, "specsDir", &c.SpecsDir); err != nil {
		return err
	}
	if err := setString(m, "primaryDocument", &c.PrimaryDocument); err != nil {
		return err
	}
	if err := setString(m, "tokenEstimator", &c.TokenEstimator); err != nil {
		return err
	}
	if err := setStrings(m, "exclude", &c.Exclude); err != nil {
		return err
	}

	if sm, ok, err := m.GetMapping("structure"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	} else if ok {
		if err := setBool(sm, "strict", &c.Structure.Strict); err != nil {
			return err
		}
		if err := setStrings(sm, "requiredSections", &c.Structure.RequiredSections); err != nil {
			return err
		}
	}

	if sm, ok, err := m.GetMapping("subSpecs"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	} else if ok {
		for key, dst := range map[string]*int{
			"goodThreshold":    &c.SubSpecs.GoodThreshold,
			"warningThreshold": &c.SubSpecs.WarningThreshold,
			"errorThreshold":   &c.SubSpecs.ErrorThreshold,
		} {
			if err := setInt(sm, key, dst); err != nil {
				return err
			}
		}
		if err := setBool(sm, "checkCrossReferences", &c.SubSpecs.CheckCrossReferences); err != nil {
			return err
		}
	}
	return nil
}

func setString(m *configlang.Mapping, key string, dst *string) error {
	v, ok, err := m.GetString(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if ok {
		*dst = v
	}
	return nil
}

func setBool(m *configlang.Mapping, key string, dst *bool) error {
	v, ok, err := m.GetBool(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if ok {
		*dst = v
	}
	return nil
}

func setInt(m *configlang.Mapping, key string, dst *int) error {
	v, ok, err := m.GetInt(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if ok {
		*dst = v
	}
	return nil
}

// setStrings treats an explicit null as an empty list, which is how
// Encode writes one.
func setStrings(m *configlang.Mapping, key string, dst *[]string) error {
	v, ok, err := m.GetStrings(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch {
	case ok:
		*dst = v
	case m.Has(key):
		*dst = []string{}
	}
	return nil
}

// ─── Encoding ───────────────────────────────────────────────────────────────

// Mapping converts the configuration into a configlang value tree with
// keys in their documented order.
func (c *ProjectConfig) Mapping() *configlang.Mapping {
	m := configlang.NewMapping()
	m.Set("specsDir", configlang.String(c.SpecsDir))
	m.Set("primaryDocument", configlang.String(c.PrimaryDocument))
	m.Set("tokenEstimator", configlang.String(c.TokenEstimator))
	m.Set("exclude", stringSequence(c.Exclude))

	structure := configlang.NewMapping()
	structure.Set("strict", configlang.Bool(c.Structure.Strict))
	structure.Set("requiredSections", stringSequence(c.Structure.RequiredSections))
	m.Set("structure", structure)

	sub := configlang.NewMapping()
	sub.Set("goodThreshold", configlang.Number(c.SubSpecs.GoodThreshold))
	sub.Set("warningThreshold", configlang.Number(c.SubSpecs.WarningThreshold))
	sub.Set("errorThreshold", configlang.Number(c.SubSpecs.ErrorThreshold))
	sub.Set("checkCrossReferences", configlang.Bool(c.SubSpecs.CheckCrossReferences))
	m.Set("subSpecs", sub)
	return m
}

// Encode renders the configuration as a config document.
func (c *ProjectConfig) Encode() string {
	return configlang.Encode(c.Mapping())
}

func stringSequence(items []string) configlang.Sequence {
	seq := make(configlang.Sequence, len(items))
	for i, s := range items {
		seq[i] = configlang.String(s)
	}
	return seq
}
