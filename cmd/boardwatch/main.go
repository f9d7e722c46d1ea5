package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freeeve/boardwatch/internal/engine"
	"github.com/freeeve/boardwatch/internal/httpapi"
	"github.com/freeeve/boardwatch/internal/logx"
	"github.com/freeeve/boardwatch/internal/overlay"
	"github.com/freeeve/boardwatch/internal/sched"
	"github.com/freeeve/boardwatch/internal/track"
	"github.com/freeeve/boardwatch/internal/world"
)

func main() {
	defaultStockfish := ""
	if envPath := os.Getenv("STOCKFISH_PATH"); envPath != "" {
		defaultStockfish = envPath
	}

	var (
		// World feed
		feedURL    = flag.String("feed", "ws://127.0.0.1:8790/world", "game client world feed URL")
		overlayURL = flag.String("overlay", "", "game client overlay draw URL (empty = render disabled)")

		// Analysis backend
		engineURL     = flag.String("engine", "http://127.0.0.1:5000", "analysis server base URL")
		stockfishPath = flag.String("stockfish", defaultStockfish, "path to Stockfish executable (set = run in-process, skip the analysis server)")
		depth         = flag.Int("depth", 8, "search depth per request")
		callTimeout   = flag.Duration("call-timeout", 15*time.Second, "analysis call timeout")

		// Tracking
		typeTag      = flag.String("type-tag", "chessboard", "object type tag for boards")
		maxRange     = flag.Float64("range", 60, "max distance from viewer to track a board")
		scanInterval = flag.Duration("scan-interval", 500*time.Millisecond, "tracker scan cadence")

		// Scheduling
		minInterval = flag.Duration("min-request-interval", 2*time.Second, "per-board floor between requests")
		settle      = flag.Duration("settle", 800*time.Millisecond, "pause before each analysis call")
		cooldown    = flag.Duration("cooldown", 500*time.Millisecond, "pause after each analysis call")

		// Rendering
		renderInterval = flag.Duration("render-interval", 100*time.Millisecond, "overlay render cadence")

		// Status surface
		statusAddr = flag.String("status-addr", "", "status HTTP listen address (empty = disabled)")
	)
	flag.Parse()

	logger := logx.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Analysis backend: in-process Stockfish when a path is given,
	// otherwise the HTTP analysis server.
	var analyzer engine.Analyzer
	if *stockfishPath != "" {
		local, err := engine.NewLocal(engine.LocalConfig{
			StockfishPath: *stockfishPath,
			Logger:        logx.Component(logger, "engine"),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("start local engine")
		}
		defer local.Close()
		analyzer = local
		logger.Info().Str("stockfish", *stockfishPath).Msg("using in-process engine")
	} else {
		client, err := engine.NewClient(engine.ClientConfig{
			BaseURL: *engineURL,
			Logger:  logx.Component(logger, "engine"),
			Timeout: *callTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("create analysis client")
		}
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Health(probeCtx); err != nil {
			logger.Warn().Err(err).Str("url", *engineURL).Msg("analysis server not reachable yet")
		} else {
			logger.Info().Str("url", *engineURL).Msg("analysis server healthy")
		}
		cancel()
		analyzer = client
	}

	// World feed
	feed := world.NewFeed(world.FeedConfig{
		URL:    *feedURL,
		Logger: logx.Component(logger, "feed"),
	})
	go func() {
		if err := feed.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("feed stopped")
		}
	}()

	// Tracker and scheduler, wired so evictions purge queued work.
	tracker := track.New(track.Config{
		Source:   feed.Source(),
		Logger:   logx.Component(logger, "tracker"),
		TypeTag:  *typeTag,
		MaxRange: *maxRange,
		Interval: *scanInterval,
	})
	scheduler := sched.New(sched.Config{
		Analyzer:    analyzer,
		Registry:    tracker,
		Logger:      logx.Component(logger, "scheduler"),
		Depth:       *depth,
		MinInterval: *minInterval,
		SettleDelay: *settle,
		Cooldown:    *cooldown,
		CallTimeout: *callTimeout,
	})
	tracker.SetOnEvict(scheduler.HandleEvict)

	// Status surface
	if *statusAddr != "" {
		srv := &http.Server{
			Addr:         *statusAddr,
			Handler:      httpapi.NewRouter(logx.Component(logger, "status"), statusSource{tracker, scheduler}),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("status listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("status server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Render adapter on its own cadence.
	if *overlayURL != "" {
		canvas := overlay.NewFeedCanvas(*overlayURL, logx.Component(logger, "overlay"))
		defer canvas.Close()
		adapter := overlay.NewAdapter(overlay.Config{
			Tracker:   tracker,
			Projector: overlay.NewCameraProjector(feed.Source()),
			Canvas:    canvas,
			Logger:    logx.Component(logger, "overlay"),
			Interval:  *renderInterval,
		})
		go func() {
			if err := adapter.Run(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("overlay stopped")
			}
		}()
	}

	logger.Info().
		Str("feed", *feedURL).
		Dur("scan_interval", *scanInterval).
		Int("depth", *depth).
		Msg("boardwatch running")

	// Main driver: scan, evaluate, kick, in strict order each tick.
	ticker := time.NewTicker(*scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return
		case now := <-ticker.C:
			tracker.Scan(now)
			scheduler.Evaluate(now, tracker.Entities())
			scheduler.Kick(ctx)
		}
	}
}

// statusSource feeds the status endpoint from the live tracker and
// scheduler.
type statusSource struct {
	tracker   *track.Tracker
	scheduler *sched.Scheduler
}

func (s statusSource) Status() httpapi.Status {
	st := httpapi.Status{QueueLen: s.scheduler.QueueLen()}
	for _, ent := range s.tracker.Entities() {
		bs := httpapi.BoardStatus{
			ID:       ent.ID(),
			InFlight: ent.InFlight(),
		}
		if snap := ent.Snapshot(); snap != nil {
			bs.Position = snap.Encode()
			bs.Pieces = snap.Len()
		}
		if r := ent.Result(); r != nil {
			bs.HasResult = true
			bs.BestMove = string(r.From) + string(r.To)
		}
		st.Boards = append(st.Boards, bs)
	}
	return st
}
