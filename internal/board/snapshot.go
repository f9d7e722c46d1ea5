package board

import "strings"

// Snapshot is one atomic read of a board: at most one piece per tile,
// plus the side the observer is playing. A snapshot is never mutated
// after Build returns; each tracking cycle replaces it wholesale.
type Snapshot struct {
	pieces  map[Tile]Piece
	Viewing Side
}

// Build assembles a snapshot from raw pieces. Pieces on invalid or
// off-board tiles are skipped. When two pieces claim the same tile the
// later one wins; that happens on torn reads of a live board and is not
// worth more than a shrug.
func Build(viewing Side, pieces []Piece) *Snapshot {
	s := &Snapshot{
		pieces:  make(map[Tile]Piece, len(pieces)),
		Viewing: viewing,
	}
	for _, p := range pieces {
		if !p.Tile.Valid() {
			continue
		}
		s.pieces[p.Tile] = p
	}
	return s
}

// At returns the piece occupying a tile, if any.
func (s *Snapshot) At(t Tile) (Piece, bool) {
	p, ok := s.pieces[t]
	return p, ok
}

// Len returns the number of occupied tiles.
func (s *Snapshot) Len() int {
	return len(s.pieces)
}

// Encode serializes the snapshot as a single-line position: ranks 8
// down to 1, files a to h, empty runs collapsed to counts, then the
// side-to-move token. Castling rights, en passant, and move counters
// are not tracked, so the suffix is fixed.
//
// Identical snapshots always encode to identical strings; the scheduler
// relies on that for change detection.
func (s *Snapshot) Encode() string {
	var b strings.Builder
	b.Grow(80)
	for rank := 8; rank >= 1; rank-- {
		if rank < 8 {
			b.WriteByte('/')
		}
		empty := 0
		for file := 1; file <= 8; file++ {
			t, _ := TileAt(file, rank)
			p, ok := s.pieces[t]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(letter(p.Side, p.Kind))
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
	}
	b.WriteByte(' ')
	b.WriteString(s.Viewing.Token())
	b.WriteString(" - - 0 1")
	return b.String()
}
