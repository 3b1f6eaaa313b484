package chess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var squareGen = rapid.SampledFrom([]rune(" pnbrqkPNBRQK"))

func placementGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		ranks := make([]string, 8)
		for i := range ranks {
			squares := rapid.SliceOfN(squareGen, 8, 8).Draw(t, "rank")
			rank, err := CompressRank(squares)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			ranks[i] = rank
		}
		return strings.Join(ranks, "/")
	})
}

func TestCompressExpandRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		squares := rapid.SliceOfN(squareGen, 8, 8).Draw(t, "squares")

		rank, err := CompressRank(squares)
		require.NoError(t, err)

		expanded, err := ExpandRank(rank)
		require.NoError(t, err)
		require.Equal(t, squares, expanded)
	})
}

func TestInvertMirrorIsInvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		placement := placementGen().Draw(t, "placement")
		side := rapid.SampledFrom([]string{"w", "b"}).Draw(t, "side")

		fen, err := AddGameState(placement, side)
		require.NoError(t, err)

		once, err := InvertMirror(fen)
		require.NoError(t, err)
		twice, err := InvertMirror(once)
		require.NoError(t, err)

		require.Equal(t, fen, twice)
		require.NoError(t, ValidatePlacement(strings.Fields(once)[0]))
		require.Equal(t, strings.Fields(fen)[1:], strings.Fields(once)[1:])
	})
}

func TestInvertMirrorKeepsPieces(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		placement := placementGen().Draw(t, "placement")

		fen, err := AddGameState(placement, "w")
		require.NoError(t, err)
		inverted, err := InvertMirror(fen)
		require.NoError(t, err)

		for _, piece := range "pnbrqkPNBRQK" {
			require.Equal(t,
				strings.Count(placement, string(piece)),
				strings.Count(strings.Fields(inverted)[0], string(piece)),
			)
		}
	})
}
