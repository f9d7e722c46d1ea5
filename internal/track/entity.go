package track

import (
	"sync"
	"time"

	"github.com/freeeve/boardwatch/internal/board"
	"github.com/freeeve/boardwatch/internal/world"
)

// BestMove is the latest reconciled answer for one board. Positions are
// resolved at reconciliation time against whatever geometry the board
// has then, not when the request was queued.
type BestMove struct {
	From    board.Tile
	To      board.Tile
	Capture *board.Piece
	FromPos *board.Vec3
	ToPos   *board.Vec3
	Eval    *float64
	Mate    bool
}

// Entity is one tracked board. The tracker owns its lifecycle and
// replaces the snapshot every cycle; the scheduler and drain worker
// touch only the scheduling fields, through the methods below. All
// field access goes through one mutex so the two writers never race.
type Entity struct {
	id  string
	obj world.Object

	mu          sync.Mutex
	snap        *board.Snapshot
	lastSent    string
	lastRequest time.Time
	inFlight    bool
	result      *BestMove
}

// ID returns the stable identity of the underlying world object.
func (e *Entity) ID() string { return e.id }

// Snapshot returns the latest board snapshot.
func (e *Entity) Snapshot() *board.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// update replaces the snapshot and object handle, preserving the
// scheduling fields across the cycle.
func (e *Entity) update(obj world.Object, snap *board.Snapshot) {
	e.mu.Lock()
	e.obj = obj
	e.snap = snap
	e.mu.Unlock()
}

// TryMarkRequested atomically checks the enqueue conditions and, when
// they all hold, records the request: position must differ from the
// last one sent, the per-board rate floor must have elapsed, and no
// request may already be in flight.
func (e *Entity) TryMarkRequested(position string, now time.Time, minInterval time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return false
	}
	if position == e.lastSent {
		return false
	}
	if !e.lastRequest.IsZero() && now.Sub(e.lastRequest) < minInterval {
		return false
	}
	e.inFlight = true
	e.lastSent = position
	e.lastRequest = now
	return true
}

// InFlight reports whether a request for this board is queued or being
// serviced.
func (e *Entity) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// ClearInFlight marks the outstanding request finished, whatever came
// of it.
func (e *Entity) ClearInFlight() {
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

// Result returns the latest reconciled best move, if any.
func (e *Entity) Result() *BestMove {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// SetResult replaces the latest best move.
func (e *Entity) SetResult(r *BestMove) {
	e.mu.Lock()
	e.result = r
	e.mu.Unlock()
}

// SlotPos resolves the static world position of a board slot, the
// child object named after the tile. Used for destinations and for
// origins whose piece has no readable position.
func (e *Entity) SlotPos(t board.Tile) (board.Vec3, bool) {
	if !t.Valid() {
		return board.Vec3{}, false
	}
	e.mu.Lock()
	obj := e.obj
	e.mu.Unlock()
	if obj == nil {
		return board.Vec3{}, false
	}
	slot, ok := obj.Child("slot_" + string(t))
	if !ok {
		return board.Vec3{}, false
	}
	return slot.WorldPos()
}
