package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docroute/internal/core/domain"
)

func TestConversionMessageRoundTrip(t *testing.T) {
	in := domain.ConvertRequest{
		Path:      "/data/scan.pdf",
		Selector:  domain.EngineAuto,
		OutputDir: "/data/out",
		LogPath:   "/data/runs_log.csv",
		Timeout:   90 * time.Second,
	}
	payload, requestID, err := encodeConversion(in)
	if err != nil {
		t.Fatalf("encodeConversion() error = %v", err)
	}
	if requestID == "" {
		t.Fatalf("expected request id")
	}

	out, gotID, err := decodeConversion(payload)
	if err != nil {
		t.Fatalf("decodeConversion() error = %v", err)
	}
	if gotID != requestID || out != in {
		t.Fatalf("round trip mismatch: %+v (%s) vs %+v (%s)", out, gotID, in, requestID)
	}
}

func TestDecodeConversionAcceptsEngineAliases(t *testing.T) {
	req, _, err := decodeConversion([]byte(`{"request_id":"r1","path":"a.pdf","engine":"marker"}`))
	if err != nil {
		t.Fatalf("decodeConversion() error = %v", err)
	}
	if req.Selector != domain.EngineText || req.Timeout != 0 {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestDecodeConversionRejectsBadPayloads(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"request_id":"r1"}`,
		`{"request_id":"r1","path":"a.pdf","engine":"tesseract"}`,
	} {
		if _, _, err := decodeConversion([]byte(payload)); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("payload %s: expected ErrInvalidInput, got %v", payload, err)
		}
	}
}

func TestEncodeConversionRequiresPath(t *testing.T) {
	if _, _, err := encodeConversion(domain.ConvertRequest{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	transient := fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed)
	if err := wrapTemporaryIfNeeded("nats publish", transient); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}

	permanent := errors.New("nats: maximum payload exceeded")
	if err := wrapTemporaryIfNeeded("nats publish", permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary")
	}

	if classifyNATSError(context.Canceled).Retryable {
		t.Fatalf("cancellation must not be retried")
	}
}
