package domain

import "time"

// NoTimeout disables the per-engine deadline. A zero Timeout means "use the
// configured default".
const NoTimeout time.Duration = -1

// ConvertRequest is one invocation: a single document, one or both engines.
type ConvertRequest struct {
	Path      string        `json:"path"`
	Selector  Engine        `json:"engine"`
	OutputDir string        `json:"output_dir,omitempty"`
	LogPath   string        `json:"log_path,omitempty"`
	Timeout   time.Duration `json:"-"`
}

type ConvertReport struct {
	Decision *RoutingDecision  `json:"decision,omitempty"`
	Engine   Engine            `json:"engine"`
	Rows     []EngineRunResult `json:"rows"`
}
