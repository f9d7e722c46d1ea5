package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"
)

// LocalConfig configures an in-process Stockfish backend.
type LocalConfig struct {
	StockfishPath string
	Logger        zerolog.Logger
	HashMB        int // default 128
	Threads       int // default 2
}

// Local runs Stockfish over UCI in-process, skipping the HTTP hop the
// analysis server otherwise provides. UCI engines are single-session,
// so calls are serialized with a mutex; the scheduler only ever has one
// request in flight anyway.
type Local struct {
	mu     sync.Mutex
	engine *uci.Engine
	log    zerolog.Logger
}

func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.StockfishPath == "" {
		return nil, fmt.Errorf("stockfish path required")
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 128
	}
	if cfg.Threads == 0 {
		cfg.Threads = 2
	}

	eng, err := uci.NewEngine(cfg.StockfishPath)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}
	return &Local{engine: eng, log: cfg.Logger}, nil
}

// Close shuts the engine process down.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine != nil {
		l.engine.Close()
		l.engine = nil
	}
	return nil
}

// Analyze implements Analyzer.
func (l *Local) Analyze(ctx context.Context, position string, depth int) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine == nil {
		return nil, fmt.Errorf("engine closed")
	}

	if err := l.engine.SetFEN(position); err != nil {
		return nil, fmt.Errorf("set position: %w", err)
	}
	results, err := l.engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return nil, fmt.Errorf("engine search: %w", err)
	}
	if results.BestMove == "" {
		return nil, fmt.Errorf("no best move from engine")
	}

	out := &Analysis{BestMove: results.BestMove}
	if len(results.Results) > 0 {
		best := results.Results[0]
		for _, r := range results.Results {
			if r.Depth > best.Depth {
				best = r
			}
		}
		// Engine scores are from the side to move; normalize to white's
		// perspective like the analysis server does. Mates become the
		// same +/-10000 sentinel.
		score := float64(best.Score)
		if strings.Contains(position, " b ") {
			score = -score
		}
		if best.Mate {
			if score > 0 {
				score = MateScore
			} else {
				score = -MateScore
			}
		}
		out.Evaluation = &score
	}
	return out, nil
}
