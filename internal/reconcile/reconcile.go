// Package reconcile maps analysis responses back onto the board they
// were asked about. The board may have changed while the request was in
// flight, so geometry is always resolved against the board's current
// snapshot, never against state captured at enqueue time.
package reconcile

import (
	"github.com/freeeve/boardwatch/internal/board"
	"github.com/freeeve/boardwatch/internal/engine"
	"github.com/freeeve/boardwatch/internal/track"
)

// Apply builds a BestMove from a response. It returns false when the
// response carries no usable move token; that is absence, not an error.
func Apply(ent *track.Entity, analysis *engine.Analysis) (*track.BestMove, bool) {
	if analysis == nil {
		return nil, false
	}
	from, to, err := board.MoveTiles(analysis.BestMove)
	if err != nil {
		return nil, false
	}

	result := &track.BestMove{
		From: from,
		To:   to,
		Eval: analysis.Evaluation,
		Mate: analysis.Mate(),
	}

	snap := ent.Snapshot()

	// Origin: prefer the piece currently sitting on the origin tile;
	// fall back to the static slot when the piece moved or its position
	// was unreadable.
	if snap != nil {
		if p, ok := snap.At(from); ok && p.Pos != nil {
			pos := *p.Pos
			result.FromPos = &pos
		}
		if occ, ok := snap.At(to); ok {
			result.Capture = &occ
		}
	}
	if result.FromPos == nil {
		if pos, ok := ent.SlotPos(from); ok {
			result.FromPos = &pos
		}
	}

	// Destination: always the static slot.
	if pos, ok := ent.SlotPos(to); ok {
		result.ToPos = &pos
	}

	return result, true
}
