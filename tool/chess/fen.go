package chess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFEN is returned for malformed FEN input.
var ErrInvalidFEN = errors.New("invalid FEN")

const empty = ' '

// ExpandRank expands one FEN rank (e.g. "p2b4") into its 8 squares, using a
// space for empty squares.
func ExpandRank(rank string) ([]rune, error) {
	squares := make([]rune, 0, 8)
	for _, r := range rank {
		if r >= '1' && r <= '8' {
			for i := 0; i < int(r-'0'); i++ {
				squares = append(squares, empty)
			}
			continue
		}
		if !strings.ContainsRune("pnbrqkPNBRQK", r) {
			return nil, fmt.Errorf("%w: unexpected %q in rank %q", ErrInvalidFEN, r, rank)
		}
		squares = append(squares, r)
	}
	if len(squares) != 8 {
		return nil, fmt.Errorf("%w: rank %q has %d squares", ErrInvalidFEN, rank, len(squares))
	}
	return squares, nil
}

// CompressRank is the inverse of ExpandRank.
func CompressRank(squares []rune) (string, error) {
	if len(squares) != 8 {
		return "", fmt.Errorf("%w: rank has %d squares", ErrInvalidFEN, len(squares))
	}

	var b strings.Builder
	run := 0
	for _, sq := range squares {
		if sq == empty {
			run++
			continue
		}
		if run > 0 {
			b.WriteString(strconv.Itoa(run))
			run = 0
		}
		b.WriteRune(sq)
	}
	if run > 0 {
		b.WriteString(strconv.Itoa(run))
	}
	return b.String(), nil
}

// ValidatePlacement checks the piece placement field of a FEN string.
func ValidatePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: placement must have 8 ranks separated by '/'", ErrInvalidFEN)
	}
	for _, rank := range ranks {
		if _, err := ExpandRank(rank); err != nil {
			return err
		}
	}
	return nil
}

// GameState holds the FEN fields following the side to move.
type GameState struct {
	Castling       string
	EnPassant      string
	HalfmoveClock  int
	FullmoveNumber int
}

// AddGameState completes a piece placement to a full six field FEN string.
// The side to move must be "w" or "b" (case-insensitive); castling and en
// passant default to "-", the clocks to 0 and 1.
func AddGameState(placement, sideToMove string, optFns ...func(s *GameState)) (string, error) {
	state := GameState{Castling: "-", EnPassant: "-", HalfmoveClock: 0, FullmoveNumber: 1}
	for _, fn := range optFns {
		fn(&state)
	}

	side := strings.ToLower(strings.TrimSpace(sideToMove))
	if side != "w" && side != "b" {
		return "", fmt.Errorf("%w: side to move must be 'w' or 'b', received '%s'", ErrInvalidFEN, sideToMove)
	}
	if state.HalfmoveClock < 0 {
		return "", fmt.Errorf("%w: halfmove clock cannot be negative", ErrInvalidFEN)
	}
	if state.FullmoveNumber < 1 {
		return "", fmt.Errorf("%w: fullmove number must be 1 or greater", ErrInvalidFEN)
	}

	return fmt.Sprintf("%s %s %s %s %d %d",
		placement, side, state.Castling, state.EnPassant, state.HalfmoveClock, state.FullmoveNumber), nil
}

// InvertMirror rotates the board of a full FEN string by 180 degrees: the
// ranks are flipped vertically and every rank horizontally. The other five
// fields are preserved.
func InvertMirror(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return "", fmt.Errorf("%w: FEN string must have 6 space-separated fields", ErrInvalidFEN)
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return "", fmt.Errorf("%w: FEN board part must have 8 ranks separated by '/'", ErrInvalidFEN)
	}

	out := make([]string, 8)
	for r, rank := range ranks {
		squares, err := ExpandRank(rank)
		if err != nil {
			return "", err
		}
		mirrored := make([]rune, 8)
		for c, sq := range squares {
			mirrored[7-c] = sq
		}
		if out[7-r], err = CompressRank(mirrored); err != nil {
			return "", err
		}
	}

	return strings.Join(append([]string{strings.Join(out, "/")}, fields[1:]...), " "), nil
}
