package appcfg

import (
	"fmt"

	"github.com/soochol/appcfg/internal/yamldoc"
)

// Placement selects a workflow's before_run or after_run chain.
type Placement string

const (
	PlacementBeforeRun Placement = "before_run"
	PlacementAfterRun  Placement = "after_run"
)

// Placements lists both chain placements in the order they run.
var Placements = []Placement{PlacementBeforeRun, PlacementAfterRun}

// Valid reports whether p is a known placement.
func (p Placement) Valid() bool {
	return p == PlacementBeforeRun || p == PlacementAfterRun
}

// ParsePlacement accepts "before_run" and "after_run".
func ParsePlacement(s string) (Placement, error) {
	p := Placement(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown chain placement %q", s)
	}
	return p, nil
}

// FromDocument decodes the typed view of d.
func FromDocument(d *yamldoc.Document) (*Config, error) {
	var cfg Config
	if err := d.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
