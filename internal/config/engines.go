package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docroute/internal/core/domain"
)

type enginesFile struct {
	Engines []domain.EngineSpec `yaml:"engines"`
}

// Engines resolves engine specs: built-in defaults, then the YAML file, then
// the binary overrides from the environment.
func (c Config) Engines() (map[domain.Engine]domain.EngineSpec, error) {
	specs := domain.DefaultEngineSpecs()

	if c.EnginesFile != "" {
		overrides, err := LoadEnginesFile(c.EnginesFile)
		if err != nil {
			return nil, err
		}
		for _, spec := range overrides {
			specs[spec.Kind] = mergeSpec(specs[spec.Kind], spec)
		}
	}

	if c.OCRBinary != "" {
		spec := specs[domain.EngineOCR]
		spec.Binary = c.OCRBinary
		specs[domain.EngineOCR] = spec
	}
	if c.TextBinary != "" {
		spec := specs[domain.EngineText]
		spec.Binary = c.TextBinary
		specs[domain.EngineText] = spec
	}

	for kind, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("engine %s: %w", kind, err)
		}
	}
	return specs, nil
}

func LoadEnginesFile(path string) ([]domain.EngineSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engines file: %w", err)
	}
	var file enginesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse engines file %s: %w", path, err)
	}
	for i, spec := range file.Engines {
		kind, err := domain.ParseEngine(string(spec.Kind))
		if err != nil || kind == domain.EngineBoth {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse engines file", fmt.Errorf("entry %d: kind must be ocr or text, got %q", i, spec.Kind))
		}
		file.Engines[i].Kind = kind
	}
	return file.Engines, nil
}

// mergeSpec overlays the non-empty fields of override onto base.
func mergeSpec(base, override domain.EngineSpec) domain.EngineSpec {
	out := base
	out.Kind = override.Kind
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Binary != "" {
		out.Binary = override.Binary
	}
	if len(override.Args) > 0 {
		out.Args = override.Args
	}
	if override.Suffix != "" {
		out.Suffix = override.Suffix
	}
	if override.InputMode != "" {
		out.InputMode = override.InputMode
	}
	if override.Layout != "" {
		out.Layout = override.Layout
	}
	if override.OutputExt != "" {
		out.OutputExt = override.OutputExt
	}
	return out
}
