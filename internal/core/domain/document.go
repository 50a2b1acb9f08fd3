package domain

import (
	"fmt"
	"strings"
)

type Engine string

const (
	EngineOCR  Engine = "ocr"
	EngineText Engine = "text"
	EngineBoth Engine = "both"
)

// EngineAuto is only meaningful as a caller selector: route first, then run.
const EngineAuto Engine = "auto"

func ParseEngine(raw string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ocr", "surya":
		return EngineOCR, nil
	case "text", "marker":
		return EngineText, nil
	case "both":
		return EngineBoth, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse engine", fmt.Errorf("unknown engine %q", raw))
	}
}

func ParseSelector(raw string) (Engine, error) {
	if strings.EqualFold(strings.TrimSpace(raw), string(EngineAuto)) {
		return EngineAuto, nil
	}
	return ParseEngine(raw)
}

// Kinds expands a selection into the concrete engines to run, in run order.
func (e Engine) Kinds() []Engine {
	switch e {
	case EngineOCR:
		return []Engine{EngineOCR}
	case EngineText:
		return []Engine{EngineText}
	case EngineBoth:
		return []Engine{EngineOCR, EngineText}
	default:
		return nil
	}
}

type ProbeMetrics struct {
	PageCount    int     `json:"pages"`
	TextLength   int     `json:"text_len"`
	ImageCount   int     `json:"image_count"`
	ImageDensity float64 `json:"image_density"`
}

func NewProbeMetrics(pages, textLength, images int) ProbeMetrics {
	return ProbeMetrics{
		PageCount:    pages,
		TextLength:   textLength,
		ImageCount:   images,
		ImageDensity: float64(images) / float64(max(pages, 1)),
	}
}

// PageImages is the per-page result of image introspection. A non-nil Err
// means detection failed for that page only.
type PageImages struct {
	Images int
	Err    error
}

type RoutingDecision struct {
	Engine     Engine       `json:"decision"`
	Confidence float64      `json:"confidence"`
	Metrics    ProbeMetrics `json:"metrics"`
}
