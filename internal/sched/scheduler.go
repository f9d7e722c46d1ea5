// Package sched decides when a tracked board earns an analysis request
// and drains the request queue against the analysis backend, one call
// at a time.
package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/boardwatch/internal/engine"
	"github.com/freeeve/boardwatch/internal/reconcile"
	"github.com/freeeve/boardwatch/internal/track"
)

// Registry is the scheduler's view of the tracked-entity table, used
// to re-validate a request right before dispatch.
type Registry interface {
	Tracks(*track.Entity) bool
}

// Config configures a Scheduler.
type Config struct {
	Analyzer engine.Analyzer
	Registry Registry
	Logger   zerolog.Logger

	Depth       int           // search depth sent with each request, default 8
	MinInterval time.Duration // per-board floor between requests, default 2s
	SettleDelay time.Duration // pause before each call, default 800ms
	Cooldown    time.Duration // pause after each call, default 500ms
	CallTimeout time.Duration // per-call timeout, default 15s
}

// Scheduler owns the request queue and the single drain worker. The
// enqueue pass runs synchronously on the driver tick; the drain runs
// as a detached task, and kicking it while it is already draining is a
// no-op, so at most one external call is ever in flight.
type Scheduler struct {
	cfg   Config
	log   zerolog.Logger
	queue *Queue

	draining atomic.Bool
}

func New(cfg Config) *Scheduler {
	if cfg.Depth == 0 {
		cfg.Depth = 8
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 2 * time.Second
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 800 * time.Millisecond
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 500 * time.Millisecond
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	return &Scheduler{
		cfg:   cfg,
		log:   cfg.Logger,
		queue: NewQueue(),
	}
}

// Evaluate runs the enqueue pass over the tracked boards: encode each
// position and queue a request when it changed since the last one, the
// rate floor has elapsed, and nothing is already in flight for that
// board. Never blocks.
func (s *Scheduler) Evaluate(now time.Time, entities []*track.Entity) {
	for _, ent := range entities {
		snap := ent.Snapshot()
		if snap == nil {
			continue
		}
		position := snap.Encode()
		if !ent.TryMarkRequested(position, now, s.cfg.MinInterval) {
			continue
		}
		s.queue.Push(Request{Entity: ent, Position: position})
		s.log.Debug().Str("board", ent.ID()).Str("position", position).Msg("queued analysis")
	}
}

// Kick starts the drain worker unless one is already running.
func (s *Scheduler) Kick(ctx context.Context) {
	if !s.draining.CompareAndSwap(false, true) {
		return
	}
	go s.drain(ctx)
}

func (s *Scheduler) drain(ctx context.Context) {
	for {
		req, ok := s.queue.Pop()
		if !ok {
			s.draining.Store(false)
			// An enqueue may have slipped in after the failed pop;
			// re-claim the flag rather than strand it until next tick.
			if s.queue.Len() > 0 && s.draining.CompareAndSwap(false, true) {
				continue
			}
			return
		}

		ent := req.Entity
		if !s.cfg.Registry.Tracks(ent) {
			ent.ClearInFlight()
			continue
		}

		// Give the board a moment to stabilize after being queued.
		if !s.pause(ctx, s.cfg.SettleDelay) {
			ent.ClearInFlight()
			s.draining.Store(false)
			return
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		analysis, err := s.cfg.Analyzer.Analyze(callCtx, req.Position, s.cfg.Depth)
		cancel()

		switch {
		case err != nil:
			// No retry; the next state change re-queues if still relevant.
			s.log.Warn().Err(err).Str("board", ent.ID()).Msg("analysis failed")
		case !s.cfg.Registry.Tracks(ent):
			s.log.Debug().Str("board", ent.ID()).Msg("board gone, result dropped")
		default:
			if result, ok := reconcile.Apply(ent, analysis); ok {
				ent.SetResult(result)
				s.log.Info().
					Str("board", ent.ID()).
					Str("move", string(result.From)+string(result.To)).
					Msg("best move updated")
			} else {
				s.log.Warn().Str("board", ent.ID()).Str("bestmove", analysis.BestMove).Msg("unusable analysis response")
			}
		}
		ent.ClearInFlight()

		if !s.pause(ctx, s.cfg.Cooldown) {
			s.draining.Store(false)
			return
		}
	}
}

// pause sleeps for d unless ctx is cancelled first.
func (s *Scheduler) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// HandleEvict purges queued requests for an evicted board and clears
// its in-flight flag so it cannot wedge in pending forever. Wired as
// the tracker's OnEvict hook.
func (s *Scheduler) HandleEvict(ent *track.Entity) {
	if n := s.queue.Purge(ent.ID()); n > 0 {
		s.log.Debug().Str("board", ent.ID()).Int("purged", n).Msg("purged queued requests")
	}
	ent.ClearInFlight()
}

// QueueLen returns the current request queue depth.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}
