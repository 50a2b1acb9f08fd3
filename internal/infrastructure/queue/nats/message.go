package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// conversionMessage is the wire form of a queued conversion.
type conversionMessage struct {
	RequestID string  `json:"request_id"`
	Path      string  `json:"path"`
	Engine    string  `json:"engine,omitempty"`
	OutputDir string  `json:"output_dir,omitempty"`
	LogPath   string  `json:"log_path,omitempty"`
	TimeoutS  float64 `json:"timeout_s,omitempty"`
}

func encodeConversion(req domain.ConvertRequest) ([]byte, string, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "encode conversion", fmt.Errorf("path is required"))
	}
	msg := conversionMessage{
		RequestID: uuid.NewString(),
		Path:      req.Path,
		Engine:    string(req.Selector),
		OutputDir: req.OutputDir,
		LogPath:   req.LogPath,
		TimeoutS:  req.Timeout.Seconds(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, "", fmt.Errorf("marshal conversion: %w", err)
	}
	return payload, msg.RequestID, nil
}

func decodeConversion(payload []byte) (domain.ConvertRequest, string, error) {
	var msg conversionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.ConvertRequest{}, "", domain.WrapError(domain.ErrInvalidInput, "decode conversion", err)
	}
	if strings.TrimSpace(msg.Path) == "" {
		return domain.ConvertRequest{}, msg.RequestID, domain.WrapError(domain.ErrInvalidInput, "decode conversion", fmt.Errorf("path is required"))
	}

	req := domain.ConvertRequest{
		Path:      msg.Path,
		OutputDir: msg.OutputDir,
		LogPath:   msg.LogPath,
		Timeout:   time.Duration(msg.TimeoutS * float64(time.Second)),
	}
	if msg.Engine != "" {
		selector, err := domain.ParseSelector(msg.Engine)
		if err != nil {
			return domain.ConvertRequest{}, msg.RequestID, err
		}
		req.Selector = selector
	}
	return req, msg.RequestID, nil
}
