package board

import (
	"math"
	"strings"
)

// Side is the color a piece belongs to.
type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

// Token returns the side-to-move token used in encoded positions.
func (s Side) Token() string {
	if s == Black {
		return "b"
	}
	return "w"
}

// Kind is the piece type.
type Kind uint8

const (
	Pawn Kind = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// letter returns the FEN letter for the piece, uppercase for White.
func letter(s Side, k Kind) byte {
	var c byte
	switch k {
	case Pawn:
		c = 'p'
	case Knight:
		c = 'n'
	case Bishop:
		c = 'b'
	case Rook:
		c = 'r'
	case Queen:
		c = 'q'
	case King:
		c = 'k'
	}
	if s == White {
		c -= 'a' - 'A'
	}
	return c
}

// ParsePieceName extracts side and kind from a piece object name such as
// "WhiteKnight2" or "BlackPawn7". The trailing ordinal is ignored.
// Names that do not follow the convention are rejected whole; there is
// no partial result.
func ParsePieceName(name string) (Side, Kind, bool) {
	var side Side
	rest := ""
	switch {
	case strings.HasPrefix(name, "White"):
		side, rest = White, name[len("White"):]
	case strings.HasPrefix(name, "Black"):
		side, rest = Black, name[len("Black"):]
	default:
		return 0, 0, false
	}
	for k, kn := range kindNames {
		if !strings.HasPrefix(rest, kn) {
			continue
		}
		for _, c := range rest[len(kn):] {
			if c < '0' || c > '9' {
				return 0, 0, false
			}
		}
		return side, Kind(k), true
	}
	return 0, 0, false
}

// Piece is one occupant of a board tile, as read from the world during a
// single scan. Pos is the piece's last known world position and may be
// missing when the read was torn.
type Piece struct {
	Name string
	Side Side
	Kind Kind
	Tile Tile
	Pos  *Vec3
}

// Vec3 is a world-space position.
type Vec3 struct {
	X, Y, Z float64
}

// Dist returns the euclidean distance between two positions.
func (v Vec3) Dist(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
