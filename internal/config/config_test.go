package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCROUTE_ENGINE", "")
	t.Setenv("DOCROUTE_TIMEOUT_SECONDS", "")
	t.Setenv("DOCROUTE_LOG_PATH", "")
	t.Setenv("POSTGRES_DSN", "")

	cfg := Load()
	if cfg.Engine != "both" {
		t.Fatalf("expected default engine both, got %q", cfg.Engine)
	}
	if cfg.Timeout != 120*time.Second {
		t.Fatalf("expected default timeout 120s, got %v", cfg.Timeout)
	}
	if cfg.LogPath != "runs_log.csv" {
		t.Fatalf("expected default log path runs_log.csv, got %q", cfg.LogPath)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected postgres mirror disabled by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DOCROUTE_TIMEOUT_SECONDS", "2.5")
	t.Setenv("API_RATE_LIMIT_RPS", "0.5")
	t.Setenv("BREAKER_ENABLED", "false")
	t.Setenv("RETRY_MAX_ATTEMPTS", "not-a-number")

	cfg := Load()
	if cfg.Timeout != 2500*time.Millisecond {
		t.Fatalf("expected timeout 2.5s, got %v", cfg.Timeout)
	}
	if cfg.APIRateLimitRPS != 0.5 {
		t.Fatalf("expected rate limit 0.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("expected fallback retry attempts 3, got %d", cfg.RetryMaxAttempts)
	}
}

func TestEnginesMergesYAMLAndBinaryOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.yaml")
	content := `
engines:
  - kind: surya
    name: surya
    args: ["{input}", "--output_dir", "{output}", "--langs", "en"]
  - kind: text
    output_ext: .markdown
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write engines file: %v", err)
	}

	cfg := Config{EnginesFile: path, TextBinary: "/opt/marker/bin/marker"}
	specs, err := cfg.Engines()
	if err != nil {
		t.Fatalf("Engines() error = %v", err)
	}

	ocr := specs[domain.EngineOCR]
	if ocr.Name != "surya" || ocr.Binary != "surya_ocr" || len(ocr.Args) != 5 {
		t.Fatalf("unexpected ocr spec: %+v", ocr)
	}
	if ocr.Layout != domain.LayoutDirectory {
		t.Fatalf("expected default layout kept, got %q", ocr.Layout)
	}

	text := specs[domain.EngineText]
	if text.Binary != "/opt/marker/bin/marker" || text.OutputExt != ".markdown" || text.Name != "text" {
		t.Fatalf("unexpected text spec: %+v", text)
	}
}

func TestEnginesRejectsBothKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.yaml")
	if err := os.WriteFile(path, []byte("engines:\n  - kind: both\n"), 0o644); err != nil {
		t.Fatalf("write engines file: %v", err)
	}
	_, err := Config{EnginesFile: path}.Engines()
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
