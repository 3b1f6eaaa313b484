package chess

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"google.golang.org/genai"

	"github.com/hupe1980/answermesh/tool"
	"github.com/hupe1980/answermesh/tool/media"
)

// BoardFENName is the capability name of the board recognizer.
const BoardFENName = "ChessBoardFEN"

// BoardRecognizer reads the piece placement of a chess board image as drawn,
// top row first.
type BoardRecognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

const recognitionPrompt = "Transcribe the chess position in this image as the piece placement field of a FEN string. " +
	"Read the squares exactly as drawn, row by row from the top of the image to the bottom and left to right within a row. " +
	"Use uppercase letters for white pieces, lowercase for black pieces and digits for runs of empty squares. " +
	"Respond with the placement field only, for example rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR."

// VisionRecognizer recognizes boards with a multimodal Gemini model.
type VisionRecognizer struct {
	gen   media.Generator
	model string
	fs    afero.Fs
}

// NewVisionRecognizer creates a BoardRecognizer backed by gen.
func NewVisionRecognizer(gen media.Generator, model string, fs afero.Fs) *VisionRecognizer {
	if model == "" {
		model = media.DefaultModel
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &VisionRecognizer{gen: gen, model: model, fs: fs}
}

// Recognize implements BoardRecognizer.
func (v *VisionRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := afero.ReadFile(v.fs, imagePath)
	if err != nil {
		return "", fmt.Errorf("read board image: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, media.MIMEType(imagePath, data)),
		genai.NewPartFromText(recognitionPrompt),
	}

	resp, err := v.gen.GenerateContent(ctx, v.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	)
	if err != nil {
		return "", fmt.Errorf("recognize board: %w", err)
	}

	placement := extractPlacement(resp.Text())
	if err := ValidatePlacement(placement); err != nil {
		return "", fmt.Errorf("recognize board: %w", err)
	}
	return placement, nil
}

// extractPlacement picks the first token that looks like a placement field
// from a model response.
func extractPlacement(text string) string {
	for _, token := range strings.Fields(strings.Trim(text, "`")) {
		token = strings.Trim(token, "`'\".,")
		if strings.Count(token, "/") == 7 {
			return token
		}
	}
	return strings.TrimSpace(text)
}

// BoardFENOptions configures the ChessBoardFEN capability.
type BoardFENOptions struct {
	// RotateForBlack turns the recognized board by 180 degrees when black is
	// to move, for images drawn from the perspective of the side to move.
	// Defaults to true.
	RotateForBlack bool
}

// NewBoardFEN returns the ChessBoardFEN capability.
func NewBoardFEN(recognizer BoardRecognizer, optFns ...func(o *BoardFENOptions)) tool.Tool {
	opts := BoardFENOptions{RotateForBlack: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	return tool.NewFunctionTool(BoardFENName,
		"Get the FEN representation from an image of a chess board and a player turn.",
		[]tool.Input{
			{Name: "image_path", Type: tool.TypeString, Description: "The local file of the chess board image"},
			{Name: "player_turn", Type: tool.TypeString, Description: "The player with the next turn in the match, must be 'w' or 'b'"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			imagePath, err := tool.StringArg(BoardFENName, args, "image_path")
			if err != nil {
				return nil, err
			}
			turn, err := tool.StringArg(BoardFENName, args, "player_turn")
			if err != nil {
				return nil, err
			}

			placement, err := recognizer.Recognize(ctx, imagePath)
			if err != nil {
				return nil, err
			}

			fen, err := AddGameState(placement, normalizeTurn(turn))
			if err != nil {
				return nil, tool.NewToolError(BoardFENName, err.Error(), tool.CodeValidation)
			}
			if !opts.RotateForBlack || strings.Fields(fen)[1] != "b" {
				return fen, nil
			}
			return InvertMirror(fen)
		},
	)
}

// normalizeTurn accepts "white"/"black" besides "w"/"b".
func normalizeTurn(turn string) string {
	switch strings.ToLower(strings.TrimSpace(turn)) {
	case "white":
		return "w"
	case "black":
		return "b"
	default:
		return turn
	}
}
