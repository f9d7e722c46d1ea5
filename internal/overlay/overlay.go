// Package overlay draws the latest best-move indicator for each
// tracked board. It only reads reconciled results; it never touches
// tracker or scheduler state.
package overlay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/boardwatch/internal/board"
	"github.com/freeeve/boardwatch/internal/track"
)

// Point is a screen-space position.
type Point struct {
	X, Y float64
}

// Projector maps world positions onto the viewer's screen. The ok
// result is false when the position is outside the visible frustum.
type Projector interface {
	Project(board.Vec3) (Point, bool)
}

// Canvas receives the drawing primitives. Flush marks the end of a
// frame; a frame with no primitives clears whatever was drawn before.
type Canvas interface {
	Line(from, to Point)
	Marker(at Point)
	Flush()
}

// Config configures the render adapter.
type Config struct {
	Tracker   *track.Tracker
	Projector Projector
	Canvas    Canvas
	Logger    zerolog.Logger
	Interval  time.Duration // render cadence, default 100ms
}

// Adapter renders on its own cadence, independent of the tracking and
// scheduling ticks.
type Adapter struct {
	cfg Config
	log zerolog.Logger
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Interval == 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	return &Adapter{cfg: cfg, log: cfg.Logger}
}

// Render draws one frame: for every board holding a result whose two
// endpoints both project on-screen, a connecting line and a marker on
// the destination.
func (a *Adapter) Render() {
	for _, ent := range a.cfg.Tracker.Entities() {
		result := ent.Result()
		if result == nil || result.FromPos == nil || result.ToPos == nil {
			continue
		}
		from, ok := a.cfg.Projector.Project(*result.FromPos)
		if !ok {
			continue
		}
		to, ok := a.cfg.Projector.Project(*result.ToPos)
		if !ok {
			continue
		}
		a.cfg.Canvas.Line(from, to)
		a.cfg.Canvas.Marker(to)
	}
	a.cfg.Canvas.Flush()
}

// Run renders until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Render()
		}
	}
}
