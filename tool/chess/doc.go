// Package chess provides the capabilities of the chess player agent: board
// recognition from an image, best move lookup through a chess engine API and
// conversion of engine moves to algebraic notation.
//
// The FEN helpers are pure functions:
//
//	fen, _ := chess.AddGameState("8/8/8/8/8/8/8/K6k", "b")
//	flipped, _ := chess.InvertMirror(fen)
package chess
