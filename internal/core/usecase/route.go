package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
)

type RoutingThresholds struct {
	// OCR when text is shorter than MinTextLength or density reaches ScanDensity.
	MinTextLength int
	ScanDensity   float64
	// TEXT when text is longer than RichTextLength and density is below MaxTextDensity.
	RichTextLength int
	MaxTextDensity float64

	StrongConfidence   float64
	FallbackConfidence float64
}

func DefaultRoutingThresholds() RoutingThresholds {
	return RoutingThresholds{
		MinTextLength:      200,
		ScanDensity:        0.8,
		RichTextLength:     1500,
		MaxTextDensity:     0.3,
		StrongConfidence:   0.8,
		FallbackConfidence: 0.6,
	}
}

func (t RoutingThresholds) normalize() RoutingThresholds {
	out := t
	def := DefaultRoutingThresholds()

	if out.MinTextLength <= 0 {
		out.MinTextLength = def.MinTextLength
	}
	if out.ScanDensity <= 0 {
		out.ScanDensity = def.ScanDensity
	}
	if out.RichTextLength <= 0 {
		out.RichTextLength = def.RichTextLength
	}
	if out.MaxTextDensity <= 0 {
		out.MaxTextDensity = def.MaxTextDensity
	}
	if out.StrongConfidence <= 0 || out.StrongConfidence > 1 {
		out.StrongConfidence = def.StrongConfidence
	}
	if out.FallbackConfidence <= 0 || out.FallbackConfidence > 1 {
		out.FallbackConfidence = def.FallbackConfidence
	}
	return out
}

// Decide applies the routing table; the first matching rule wins.
func (t RoutingThresholds) Decide(m domain.ProbeMetrics) domain.RoutingDecision {
	switch {
	case m.TextLength < t.MinTextLength || m.ImageDensity >= t.ScanDensity:
		return domain.RoutingDecision{Engine: domain.EngineOCR, Confidence: t.StrongConfidence, Metrics: m}
	case m.TextLength > t.RichTextLength && m.ImageDensity < t.MaxTextDensity:
		return domain.RoutingDecision{Engine: domain.EngineText, Confidence: t.StrongConfidence, Metrics: m}
	default:
		return domain.RoutingDecision{Engine: domain.EngineBoth, Confidence: t.FallbackConfidence, Metrics: m}
	}
}

type RouterUseCase struct {
	analyzer   ports.DocumentAnalyzer
	thresholds RoutingThresholds
}

func NewRouterUseCase(analyzer ports.DocumentAnalyzer, thresholds RoutingThresholds) *RouterUseCase {
	return &RouterUseCase{
		analyzer:   analyzer,
		thresholds: thresholds.normalize(),
	}
}

func (uc *RouterUseCase) Probe(ctx context.Context, path string) (domain.ProbeMetrics, error) {
	textLength := uc.textLength(ctx, path)

	pages, err := uc.analyzer.PageImages(ctx, path)
	if err != nil {
		return domain.ProbeMetrics{}, domain.WrapError(domain.ErrInvalidInput, "introspect pages", err)
	}

	images := 0
	for i, page := range pages {
		if page.Err != nil {
			slog.Debug("page_image_detection_failed", "path", path, "page", i+1, "error", page.Err)
			continue
		}
		images += max(page.Images, 0)
	}

	return domain.NewProbeMetrics(len(pages), textLength, images), nil
}

func (uc *RouterUseCase) Route(ctx context.Context, path string) (domain.RoutingDecision, error) {
	metrics, err := uc.Probe(ctx, path)
	if err != nil {
		return domain.RoutingDecision{}, fmt.Errorf("probe document: %w", err)
	}

	decision := uc.thresholds.Decide(metrics)
	slog.Info("route_decision",
		"path", path,
		"engine", decision.Engine,
		"confidence", decision.Confidence,
		"pages", metrics.PageCount,
		"text_len", metrics.TextLength,
		"image_count", metrics.ImageCount,
		"image_density", metrics.ImageDensity,
	)
	return decision, nil
}

// textLength degrades extraction failures to zero.
func (uc *RouterUseCase) textLength(ctx context.Context, path string) int {
	text, err := uc.analyzer.ExtractText(ctx, path)
	if err != nil {
		slog.Debug("text_extraction_failed", "path", path, "error", err)
		return 0
	}
	return utf8.RuneCountInString(strings.TrimSpace(text))
}
