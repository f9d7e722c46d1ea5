package board

import "testing"

func TestEncodeTwoKings(t *testing.T) {
	snap := Build(White, []Piece{
		{Name: "WhiteKing", Side: White, Kind: King, Tile: "a1"},
		{Name: "BlackKing", Side: Black, Kind: King, Tile: "h8"},
	})
	want := "7k/8/8/8/8/8/8/K7 w - - 0 1"
	if got := snap.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeSideToken(t *testing.T) {
	pieces := []Piece{{Name: "WhiteKing", Side: White, Kind: King, Tile: "e1"}}
	white := Build(White, pieces).Encode()
	black := Build(Black, pieces).Encode()
	if white == black {
		t.Fatalf("side token not reflected: both encode to %q", white)
	}
	if want := "8/8/8/8/8/8/8/4K3 w - - 0 1"; white != want {
		t.Errorf("white = %q, want %q", white, want)
	}
	if want := "8/8/8/8/8/8/8/4K3 b - - 0 1"; black != want {
		t.Errorf("black = %q, want %q", black, want)
	}
}

func TestEncodeStartingRanks(t *testing.T) {
	var pieces []Piece
	backRank := []Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for file := 1; file <= 8; file++ {
		t1, _ := TileAt(file, 1)
		t2, _ := TileAt(file, 2)
		t7, _ := TileAt(file, 7)
		t8, _ := TileAt(file, 8)
		pieces = append(pieces,
			Piece{Side: White, Kind: backRank[file-1], Tile: t1},
			Piece{Side: White, Kind: Pawn, Tile: t2},
			Piece{Side: Black, Kind: Pawn, Tile: t7},
			Piece{Side: Black, Kind: backRank[file-1], Tile: t8},
		)
	}
	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"
	if got := Build(White, pieces).Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	pieces := []Piece{
		{Side: White, Kind: King, Tile: "e1"},
		{Side: White, Kind: Queen, Tile: "d4"},
		{Side: Black, Kind: King, Tile: "e8"},
		{Side: Black, Kind: Knight, Tile: "f6"},
	}
	snap := Build(Black, pieces)
	first := snap.Encode()
	for i := 0; i < 100; i++ {
		if got := snap.Encode(); got != first {
			t.Fatalf("encode not deterministic: %q vs %q", got, first)
		}
	}
	// Same pieces in a different input order encode identically too.
	reversed := make([]Piece, len(pieces))
	for i, p := range pieces {
		reversed[len(pieces)-1-i] = p
	}
	if got := Build(Black, reversed).Encode(); got != first {
		t.Errorf("order-dependent encoding: %q vs %q", got, first)
	}
}

func TestBuildSkipsInvalidTiles(t *testing.T) {
	snap := Build(White, []Piece{
		{Side: White, Kind: King, Tile: "e1"},
		{Side: White, Kind: Pawn, Tile: NoTile},
		{Side: Black, Kind: Pawn, Tile: "z9"},
		{Side: Black, Kind: Pawn, Tile: ""},
	})
	if snap.Len() != 1 {
		t.Errorf("Len() = %d, want 1", snap.Len())
	}
	if _, ok := snap.At("e1"); !ok {
		t.Error("expected piece on e1")
	}
}

func TestBuildLastWriterWins(t *testing.T) {
	snap := Build(White, []Piece{
		{Name: "WhiteQueen", Side: White, Kind: Queen, Tile: "d4"},
		{Name: "BlackRook1", Side: Black, Kind: Rook, Tile: "d4"},
	})
	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snap.Len())
	}
	p, _ := snap.At("d4")
	if p.Name != "BlackRook1" {
		t.Errorf("piece on d4 = %q, want the later write", p.Name)
	}
}
