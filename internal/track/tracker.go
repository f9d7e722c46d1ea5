// Package track discovers chess boards in the world, keeps a snapshot
// of each one fresh, and evicts boards that leave range or stop
// yielding a readable position.
package track

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/boardwatch/internal/board"
	"github.com/freeeve/boardwatch/internal/world"
)

// Field and object naming convention on board objects in the feed.
const (
	fieldGameActive  = "game_active"
	fieldWhitePlayer = "white_player"
	fieldBlackPlayer = "black_player"
	fieldTile        = "tile"
)

// Config configures a Tracker.
type Config struct {
	Source   world.Source
	Logger   zerolog.Logger
	TypeTag  string        // object type tag for boards, default "chessboard"
	MaxRange float64       // max distance from viewer, default 60
	Interval time.Duration // minimum time between scans, default 500ms

	// OnEvict is called after an entity is dropped, so queued work
	// referencing it can be purged. May be nil.
	OnEvict func(*Entity)
}

// Tracker maintains the tracked-entity table. It is the only writer of
// entity lifecycle; Scan calls are expected from a single periodic
// driver, but the table itself is safe for concurrent readers.
type Tracker struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	entities map[string]*Entity
	lastScan time.Time
}

func New(cfg Config) *Tracker {
	if cfg.TypeTag == "" {
		cfg.TypeTag = "chessboard"
	}
	if cfg.MaxRange == 0 {
		cfg.MaxRange = 60
	}
	if cfg.Interval == 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Tracker{
		cfg:      cfg,
		log:      cfg.Logger,
		entities: make(map[string]*Entity),
	}
}

// SetOnEvict installs the eviction hook. The tracker and scheduler
// reference each other, so one side has to be wired after construction.
func (t *Tracker) SetOnEvict(fn func(*Entity)) {
	t.mu.Lock()
	t.cfg.OnEvict = fn
	t.mu.Unlock()
}

// Scan runs one discover/update/evict pass. Calls within the scan
// interval are no-ops. The pass never blocks on anything: every world
// read degrades to absence, and absence just means fewer boards this
// cycle.
func (t *Tracker) Scan(now time.Time) {
	t.mu.Lock()
	if !t.lastScan.IsZero() && now.Sub(t.lastScan) < t.cfg.Interval {
		t.mu.Unlock()
		return
	}
	t.lastScan = now
	t.mu.Unlock()

	viewerName, inRange := t.discover()

	t.mu.Lock()
	var evicted []*Entity
	for id, ent := range t.entities {
		obj, ok := inRange[id]
		if !ok {
			delete(t.entities, id)
			evicted = append(evicted, ent)
			continue
		}
		snap, ok := t.buildSnapshot(obj, viewerName)
		if !ok {
			delete(t.entities, id)
			evicted = append(evicted, ent)
			continue
		}
		ent.update(obj, snap)
	}
	for id, obj := range inRange {
		if _, tracked := t.entities[id]; tracked {
			continue
		}
		snap, ok := t.buildSnapshot(obj, viewerName)
		if !ok {
			continue // not eligible, not an error
		}
		t.entities[id] = &Entity{id: id, obj: obj, snap: snap}
		t.log.Info().Str("board", id).Int("pieces", snap.Len()).Msg("tracking board")
	}
	onEvict := t.cfg.OnEvict
	t.mu.Unlock()

	for _, ent := range evicted {
		t.log.Info().Str("board", ent.ID()).Msg("board evicted")
		if onEvict != nil {
			onEvict(ent)
		}
	}
}

// discover lists board objects within range of the viewer. A viewer
// with no resolvable position yields zero candidates.
func (t *Tracker) discover() (viewerName string, inRange map[string]world.Object) {
	inRange = make(map[string]world.Object)

	viewer, ok := t.cfg.Source.Viewer()
	if !ok {
		return "", inRange
	}
	viewerPos, ok := viewer.WorldPos()
	if !ok {
		return "", inRange
	}
	viewerName, _ = viewer.Name()

	for _, obj := range t.cfg.Source.Objects(t.cfg.TypeTag) {
		pos, ok := obj.WorldPos()
		if !ok {
			continue
		}
		if viewerPos.Dist(pos) > t.cfg.MaxRange {
			continue
		}
		inRange[obj.ID()] = obj
	}
	return viewerName, inRange
}

// buildSnapshot reads one board into a snapshot. It fails closed: a
// board with no active game, a board the viewer is not playing on, or
// a board yielding zero decodable pieces is simply not a board worth
// tracking this cycle.
func (t *Tracker) buildSnapshot(obj world.Object, viewerName string) (*board.Snapshot, bool) {
	if active, ok := obj.Field(fieldGameActive); !ok || (active != "1" && active != "true") {
		return nil, false
	}

	var viewing board.Side
	white, _ := obj.Field(fieldWhitePlayer)
	black, _ := obj.Field(fieldBlackPlayer)
	switch {
	case viewerName != "" && viewerName == white:
		viewing = board.White
	case viewerName != "" && viewerName == black:
		viewing = board.Black
	default:
		return nil, false
	}

	var pieces []board.Piece
	for _, child := range obj.Children() {
		name, ok := child.Name()
		if !ok {
			continue
		}
		side, kind, ok := board.ParsePieceName(name)
		if !ok {
			continue
		}
		tileStr, ok := child.Field(fieldTile)
		if !ok {
			continue
		}
		tile := board.Tile(tileStr)
		if !tile.Valid() {
			continue // off-board or garbage, e.g. a captured piece
		}
		p := board.Piece{Name: name, Side: side, Kind: kind, Tile: tile}
		if pos, ok := child.WorldPos(); ok {
			p.Pos = &pos
		}
		pieces = append(pieces, p)
	}

	snap := board.Build(viewing, pieces)
	if snap.Len() == 0 {
		return nil, false
	}
	return snap, true
}

// Entities returns the tracked entities in no particular order.
func (t *Tracker) Entities() []*Entity {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Entity, 0, len(t.entities))
	for _, e := range t.entities {
		out = append(out, e)
	}
	return out
}

// Get returns the tracked entity for an id.
func (t *Tracker) Get(id string) (*Entity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entities[id]
	return e, ok
}

// Tracks reports whether this exact entity is still in the table. Used
// by the drain worker to re-validate a request before dispatching it.
func (t *Tracker) Tracks(e *Entity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.entities[e.id]
	return ok && cur == e
}

// Len returns the number of tracked boards.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entities)
}
