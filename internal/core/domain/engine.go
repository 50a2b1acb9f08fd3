package domain

import (
	"fmt"
	"strings"
)

type InputMode string

const (
	InputFile      InputMode = "file"
	InputDirectory InputMode = "dir"
)

type OutputLayout string

const (
	LayoutDirectory OutputLayout = "directory"
	LayoutFile      OutputLayout = "file"
)

const (
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
)

// EngineSpec describes how one external engine is invoked and how its staged
// output is normalized into the caller's output directory.
type EngineSpec struct {
	Kind      Engine       `yaml:"kind"`
	Name      string       `yaml:"name"`
	Binary    string       `yaml:"binary"`
	Args      []string     `yaml:"args"`
	Suffix    string       `yaml:"suffix"`
	InputMode InputMode    `yaml:"input_mode"`
	Layout    OutputLayout `yaml:"layout"`
	OutputExt string       `yaml:"output_ext"`
}

func DefaultEngineSpecs() map[Engine]EngineSpec {
	return map[Engine]EngineSpec{
		EngineOCR: {
			Kind:      EngineOCR,
			Name:      "ocr",
			Binary:    "surya_ocr",
			Args:      []string{PlaceholderInput, "--output_dir", PlaceholderOutput},
			Suffix:    "ocr",
			InputMode: InputFile,
			Layout:    LayoutDirectory,
		},
		EngineText: {
			Kind:      EngineText,
			Name:      "text",
			Binary:    "marker",
			Args:      []string{PlaceholderInput, "--output_dir", PlaceholderOutput},
			Suffix:    "text",
			InputMode: InputDirectory,
			Layout:    LayoutFile,
			OutputExt: ".md",
		},
	}
}

// Argv expands the argument template. Placeholders are substituted as whole
// arguments or inside one, never re-split.
func (s EngineSpec) Argv(input, output string) []string {
	args := make([]string, 0, len(s.Args))
	for _, arg := range s.Args {
		arg = strings.ReplaceAll(arg, PlaceholderInput, input)
		arg = strings.ReplaceAll(arg, PlaceholderOutput, output)
		args = append(args, arg)
	}
	return args
}

func (s EngineSpec) Validate() error {
	switch {
	case s.Kind != EngineOCR && s.Kind != EngineText:
		return WrapError(ErrInvalidInput, "validate engine", fmt.Errorf("kind must be ocr or text, got %q", s.Kind))
	case strings.TrimSpace(s.Binary) == "":
		return WrapError(ErrInvalidInput, "validate engine", fmt.Errorf("%s: binary is required", s.Kind))
	case strings.TrimSpace(s.Suffix) == "":
		return WrapError(ErrInvalidInput, "validate engine", fmt.Errorf("%s: suffix is required", s.Kind))
	case s.InputMode != InputFile && s.InputMode != InputDirectory:
		return WrapError(ErrInvalidInput, "validate engine", fmt.Errorf("%s: unknown input mode %q", s.Kind, s.InputMode))
	case s.Layout != LayoutDirectory && s.Layout != LayoutFile:
		return WrapError(ErrInvalidInput, "validate engine", fmt.Errorf("%s: unknown layout %q", s.Kind, s.Layout))
	case s.Layout == LayoutFile && s.OutputExt == "":
		return WrapError(ErrInvalidInput, "validate engine", fmt.Errorf("%s: output_ext is required for file layout", s.Kind))
	}
	return nil
}
