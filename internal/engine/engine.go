// Package engine talks to the analysis backend: either the local
// Stockfish analysis server over HTTP, or Stockfish itself via UCI.
package engine

import "context"

// MateScore is the sentinel evaluation the analysis server reports for
// forced mates, positive when white delivers.
const MateScore = 10000

// Analysis is one best-move answer for a position.
type Analysis struct {
	BestMove   string   `json:"bestmove"`
	Evaluation *float64 `json:"evaluation,omitempty"`
}

// Mate reports whether the evaluation is a forced-mate sentinel.
func (a *Analysis) Mate() bool {
	return a.Evaluation != nil && (*a.Evaluation >= MateScore || *a.Evaluation <= -MateScore)
}

// Analyzer is the scheduler's view of the backend: one position in, one
// best move out, no session state.
type Analyzer interface {
	Analyze(ctx context.Context, position string, depth int) (*Analysis, error)
}
