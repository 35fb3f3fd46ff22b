// Package session owns the live generation episode: it turns harness
// controls into new configuration snapshots and rebuilds the whole map when
// a snapshot differs from the previous one.
package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/talgya/biomegen/internal/world"
)

// ErrUnknownAction is returned for control names Next does not recognise.
var ErrUnknownAction = errors.New("unknown control action")

// Control steps.
const (
	ZoomStep  = 0.1
	ZoomFloor = 0.2 // Zoom out only while above this
	PanStep   = 0.1 // Divided by the current zoom
	MaxSeed   = 99999
)

// Action names.
const (
	ZoomIn    = "zoom_in"
	ZoomOut   = "zoom_out"
	PanLeft   = "pan_left"
	PanRight  = "pan_right"
	PanUp     = "pan_up"
	PanDown   = "pan_down"
	Reseed    = "reseed"
	SetConfig = "set_config"
)

// Action is one harness input. Seed is used by Reseed; when absent a random
// seed in [0, MaxSeed) is drawn. Config is used by SetConfig.
type Action struct {
	Kind   string        `json:"action"`
	Seed   *uint32       `json:"seed,omitempty"`
	Config *world.Config `json:"config,omitempty"`
}

// Next returns the snapshot that follows cfg under a. It never mutates cfg.
func Next(cfg world.Config, a Action) (world.Config, error) {
	next := cfg
	switch a.Kind {
	case ZoomIn:
		next.Zoom = round(cfg.Zoom + ZoomStep)
	case ZoomOut:
		if cfg.Zoom > ZoomFloor {
			next.Zoom = round(cfg.Zoom - ZoomStep)
		}
	case PanLeft:
		if cfg.PanX > -world.SoftPanLimit {
			next.PanX = pan(cfg.PanX - PanStep/cfg.Zoom)
		}
	case PanRight:
		if cfg.PanX < world.SoftPanLimit {
			next.PanX = pan(cfg.PanX + PanStep/cfg.Zoom)
		}
	case PanDown:
		if cfg.PanY > -world.SoftPanLimit {
			next.PanY = pan(cfg.PanY - PanStep/cfg.Zoom)
		}
	case PanUp:
		if cfg.PanY < world.SoftPanLimit {
			next.PanY = pan(cfg.PanY + PanStep/cfg.Zoom)
		}
	case Reseed:
		if a.Seed != nil {
			next.Seed = *a.Seed
		} else {
			next.Seed = rand.Uint32N(MaxSeed)
		}
	case SetConfig:
		if a.Config == nil {
			return cfg, fmt.Errorf("%w: %s without config", world.ErrInvalidConfig, SetConfig)
		}
		next = *a.Config
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}

	if err := next.Validate(); err != nil {
		return cfg, err
	}
	return next, nil
}

// pan keeps a stepped offset inside the hard band.
func pan(v float64) float64 {
	return round(math.Max(-world.HardPanLimit, math.Min(world.HardPanLimit, v)))
}

// round trims accumulated float error from repeated steps.
func round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
