package sched_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freeeve/boardwatch/internal/board"
	"github.com/freeeve/boardwatch/internal/engine"
	"github.com/freeeve/boardwatch/internal/sched"
	"github.com/freeeve/boardwatch/internal/track"
	"github.com/freeeve/boardwatch/internal/world"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAnalyzer struct {
	fn    func(ctx context.Context, position string, depth int) (*engine.Analysis, error)
	calls atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, position string, depth int) (*engine.Analysis, error) {
	f.calls.Add(1)
	return f.fn(ctx, position, depth)
}

func answer(move string, eval float64) func(context.Context, string, int) (*engine.Analysis, error) {
	return func(context.Context, string, int) (*engine.Analysis, error) {
		e := eval
		return &engine.Analysis{BestMove: move, Evaluation: &e}, nil
	}
}

// newBoard builds a world holding one eligible board and returns its
// tracker. Pieces sit on e1/e2 with world positions, slots on e2/e4.
func newBoard(t *testing.T, id string) (*world.Memory, *track.Tracker, *track.Entity) {
	t.Helper()
	m := world.NewMemory()
	m.Upsert(world.ObjectState{ID: "viewer", Name: "Alice", Pos: &board.Vec3{}})
	m.SetViewer("viewer")
	addBoard(m, id)

	tr := track.New(track.Config{Source: m})
	tr.Scan(t0)
	ent, ok := tr.Get(id)
	if !ok {
		t.Fatalf("board %s not tracked", id)
	}
	return m, tr, ent
}

func addBoard(m *world.Memory, id string) {
	m.Upsert(world.ObjectState{
		ID: id, Type: "chessboard", Name: id, Pos: &board.Vec3{X: 1},
		Fields: map[string]string{
			"game_active":  "1",
			"white_player": "Alice",
			"black_player": "Bob",
		},
	})
	m.Upsert(world.ObjectState{
		ID: id + "/king", Parent: id, Name: "WhiteKing",
		Fields: map[string]string{"tile": "e1"},
		Pos:    &board.Vec3{X: 1, Y: 1},
	})
	m.Upsert(world.ObjectState{
		ID: id + "/pawn", Parent: id, Name: "WhitePawn5",
		Fields: map[string]string{"tile": "e2"},
		Pos:    &board.Vec3{X: 2, Y: 2},
	})
	m.Upsert(world.ObjectState{ID: id + "/slot_e2", Parent: id, Name: "slot_e2", Pos: &board.Vec3{X: 2, Y: 2, Z: 1}})
	m.Upsert(world.ObjectState{ID: id + "/slot_e4", Parent: id, Name: "slot_e4", Pos: &board.Vec3{X: 4, Y: 4, Z: 1}})
}

func newScheduler(fa *fakeAnalyzer, tr *track.Tracker) *sched.Scheduler {
	s := sched.New(sched.Config{
		Analyzer:    fa,
		Registry:    tr,
		SettleDelay: time.Millisecond,
		Cooldown:    time.Millisecond,
		MinInterval: 2 * time.Second,
	})
	tr.SetOnEvict(s.HandleEvict)
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEvaluateQueuesOncePerPosition(t *testing.T) {
	_, tr, ent := newBoard(t, "b1")
	s := newScheduler(&fakeAnalyzer{fn: answer("e2e4", 0)}, tr)

	s.Evaluate(t0, tr.Entities())
	if s.QueueLen() != 1 {
		t.Fatalf("queue = %d, want 1", s.QueueLen())
	}

	// Still in flight: nothing more is queued.
	s.Evaluate(t0.Add(5*time.Second), tr.Entities())
	if s.QueueLen() != 1 {
		t.Errorf("queue = %d after in-flight re-evaluate, want 1", s.QueueLen())
	}

	// Completed but unchanged: deduplicated on the encoded position.
	ent.ClearInFlight()
	s.Evaluate(t0.Add(10*time.Second), tr.Entities())
	if s.QueueLen() != 1 {
		t.Errorf("queue = %d after unchanged re-evaluate, want 1", s.QueueLen())
	}
}

func TestRateFloorPerEntity(t *testing.T) {
	_, _, ent := newBoard(t, "b1")

	if !ent.TryMarkRequested("pos1", t0, 2*time.Second) {
		t.Fatal("first request refused")
	}
	ent.ClearInFlight()

	// Changed position inside the floor: suppressed.
	if ent.TryMarkRequested("pos2", t0.Add(time.Second), 2*time.Second) {
		t.Error("request inside the rate floor accepted")
	}
	// Same change after the floor: accepted.
	if !ent.TryMarkRequested("pos2", t0.Add(2*time.Second), 2*time.Second) {
		t.Error("request after the rate floor refused")
	}
}

func TestSingleFlight(t *testing.T) {
	m := world.NewMemory()
	m.Upsert(world.ObjectState{ID: "viewer", Name: "Alice", Pos: &board.Vec3{}})
	m.SetViewer("viewer")
	for _, id := range []string{"b1", "b2", "b3"} {
		addBoard(m, id)
	}
	tr := track.New(track.Config{Source: m})
	tr.Scan(t0)
	if tr.Len() != 3 {
		t.Fatalf("tracked %d boards, want 3", tr.Len())
	}

	var cur, max atomic.Int32
	var mu sync.Mutex
	fa := &fakeAnalyzer{fn: func(context.Context, string, int) (*engine.Analysis, error) {
		n := cur.Add(1)
		mu.Lock()
		if n > max.Load() {
			max.Store(n)
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		cur.Add(-1)
		e := 0.1
		return &engine.Analysis{BestMove: "e2e4", Evaluation: &e}, nil
	}}
	s := newScheduler(fa, tr)

	ctx := context.Background()
	s.Evaluate(t0, tr.Entities())
	if s.QueueLen() != 3 {
		t.Fatalf("queue = %d, want 3", s.QueueLen())
	}
	// Kicking repeatedly must not spawn extra drain workers.
	for i := 0; i < 10; i++ {
		s.Kick(ctx)
	}

	waitFor(t, "all calls to finish", func() bool { return fa.calls.Load() == 3 && s.QueueLen() == 0 })
	if max.Load() != 1 {
		t.Errorf("max concurrent calls = %d, want 1", max.Load())
	}
}

func TestEvictionPurgesQueuedRequest(t *testing.T) {
	m, tr, ent := newBoard(t, "b1")
	fa := &fakeAnalyzer{fn: answer("e2e4", 0)}
	s := newScheduler(fa, tr)

	s.Evaluate(t0, tr.Entities())
	if s.QueueLen() != 1 {
		t.Fatal("request not queued")
	}

	// Board vanishes before the drain ever runs.
	m.Remove("b1")
	tr.Scan(t0.Add(time.Second))
	if s.QueueLen() != 0 {
		t.Error("queued request not purged on eviction")
	}
	if ent.InFlight() {
		t.Error("in-flight flag not cleared on eviction")
	}

	s.Kick(context.Background())
	time.Sleep(50 * time.Millisecond)
	if fa.calls.Load() != 0 {
		t.Errorf("analyzer called %d times for evicted board", fa.calls.Load())
	}
	if ent.Result() != nil {
		t.Error("result attached to evicted board")
	}
}

func TestDispatchRevalidation(t *testing.T) {
	// Same as above, but without the eviction hook: the worker's own
	// re-check before dispatch must drop the request.
	m, tr, ent := newBoard(t, "b1")
	fa := &fakeAnalyzer{fn: answer("e2e4", 0)}
	s := sched.New(sched.Config{
		Analyzer:    fa,
		Registry:    tr,
		SettleDelay: time.Millisecond,
		Cooldown:    time.Millisecond,
	})

	s.Evaluate(t0, tr.Entities())
	m.Remove("b1")
	tr.Scan(t0.Add(time.Second))

	s.Kick(context.Background())
	waitFor(t, "queue drained", func() bool { return s.QueueLen() == 0 && !ent.InFlight() })
	if fa.calls.Load() != 0 {
		t.Errorf("analyzer called %d times for untracked board", fa.calls.Load())
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	m, tr, ent := newBoard(t, "b1")

	started := make(chan struct{})
	release := make(chan struct{})
	fa := &fakeAnalyzer{fn: func(context.Context, string, int) (*engine.Analysis, error) {
		close(started)
		<-release
		e := 0.3
		return &engine.Analysis{BestMove: "e2e4", Evaluation: &e}, nil
	}}
	s := newScheduler(fa, tr)

	s.Evaluate(t0, tr.Entities())
	s.Kick(context.Background())
	<-started

	// Eviction lands while the call is in flight.
	m.Remove("b1")
	tr.Scan(t0.Add(time.Second))
	close(release)

	// Give the drain time to mishandle the response if it were going to.
	time.Sleep(100 * time.Millisecond)
	if ent.InFlight() {
		t.Error("in-flight flag still set after eviction")
	}
	if ent.Result() != nil {
		t.Error("stale response attached to evicted board")
	}
}

func TestAnalyzeFailureClearsInFlight(t *testing.T) {
	_, tr, ent := newBoard(t, "b1")
	fa := &fakeAnalyzer{fn: func(context.Context, string, int) (*engine.Analysis, error) {
		return nil, context.DeadlineExceeded
	}}
	s := newScheduler(fa, tr)

	s.Evaluate(t0, tr.Entities())
	s.Kick(context.Background())

	waitFor(t, "in-flight cleared after failure", func() bool { return !ent.InFlight() })
	if ent.Result() != nil {
		t.Error("result attached after failed call")
	}
	if s.QueueLen() != 0 {
		t.Error("failed request left in queue")
	}
}

func TestEndToEnd(t *testing.T) {
	_, tr, ent := newBoard(t, "b1")
	fa := &fakeAnalyzer{fn: answer("e2e4", 0.3)}
	s := newScheduler(fa, tr)

	s.Evaluate(t0, tr.Entities())
	s.Kick(context.Background())

	waitFor(t, "result", func() bool { return ent.Result() != nil })
	r := ent.Result()
	if r.From != "e2" || r.To != "e4" {
		t.Errorf("move = %s%s, want e2e4", r.From, r.To)
	}
	// Origin from the live piece on e2, destination from the static slot.
	if r.FromPos == nil || r.FromPos.X != 2 || r.FromPos.Z != 0 {
		t.Errorf("FromPos = %+v, want the pawn's live position", r.FromPos)
	}
	if r.ToPos == nil || r.ToPos.X != 4 || r.ToPos.Z != 1 {
		t.Errorf("ToPos = %+v, want the e4 slot position", r.ToPos)
	}
	if r.Eval == nil || *r.Eval != 0.3 {
		t.Errorf("Eval = %v, want 0.3", r.Eval)
	}
	if r.Mate {
		t.Error("Mate flagged for a quiet eval")
	}
}
