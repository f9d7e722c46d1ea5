package board

import "fmt"

// Tile is the textual identifier of a board square, file letter a-h
// followed by rank digit 1-8 (e.g. "e4"). The world feed uses "xx" for
// pieces that are currently off the board.
type Tile string

// NoTile is the off-board sentinel carried by captured pieces.
const NoTile Tile = "xx"

// ParseTile decodes a tile into 1-based file and rank.
// Anything that is not exactly a file letter plus a rank digit is
// invalid, including the NoTile sentinel.
func ParseTile(t Tile) (file, rank int, ok bool) {
	if len(t) != 2 {
		return 0, 0, false
	}
	file = int(t[0]-'a') + 1
	rank = int(t[1]-'1') + 1
	if file < 1 || file > 8 || rank < 1 || rank > 8 {
		return 0, 0, false
	}
	return file, rank, true
}

// TileAt is the inverse of ParseTile for 1-based coordinates.
func TileAt(file, rank int) (Tile, bool) {
	if file < 1 || file > 8 || rank < 1 || rank > 8 {
		return "", false
	}
	return Tile([]byte{byte('a' + file - 1), byte('1' + rank - 1)}), true
}

// Valid reports whether the tile decodes to an on-board square.
func (t Tile) Valid() bool {
	_, _, ok := ParseTile(t)
	return ok
}

func (t Tile) String() string {
	if !t.Valid() {
		return "-"
	}
	return string(t)
}

// MoveTiles splits a UCI-style move token (e.g. "e2e4", "e7e8q") into
// origin and destination tiles. Both must decode to on-board squares.
func MoveTiles(uci string) (from, to Tile, err error) {
	if len(uci) < 4 {
		return "", "", fmt.Errorf("move token too short: %q", uci)
	}
	from, to = Tile(uci[0:2]), Tile(uci[2:4])
	if !from.Valid() {
		return "", "", fmt.Errorf("invalid origin tile in %q", uci)
	}
	if !to.Valid() {
		return "", "", fmt.Errorf("invalid destination tile in %q", uci)
	}
	return from, to, nil
}
