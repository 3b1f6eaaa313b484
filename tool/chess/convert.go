package chess

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/tool"
)

// ConvertMoveName is the capability name of the notation converter.
const ConvertMoveName = "ConvertChessMove"

type convertMoveArgs struct {
	PiecePlacement string `json:"piece_placement" description:"The chess piece placement in plain text"`
	Move           string `json:"move" description:"The move in coordinate notation (e.g., e2e4)"`
}

// NewConvertMove returns the ConvertChessMove capability. It asks llm to
// translate a coordinate move into algebraic notation.
func NewConvertMove(llm model.Model) tool.Tool {
	return tool.NewFunctionToolFromStruct(ConvertMoveName,
		"Convert a chess move from coordinate notation to algebraic notation.",
		convertMoveArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			placement, err := tool.StringArg(ConvertMoveName, args, "piece_placement")
			if err != nil {
				return nil, err
			}
			move, err := tool.StringArg(ConvertMoveName, args, "move")
			if err != nil {
				return nil, err
			}

			prompt := fmt.Sprintf("Convert this chess move from coordinate notation to algebraic notation: %s. "+
				"Use the following %s. Do not provide any additional thinking or commentary in the response, "+
				"the algebraic notation only.", move, placement)

			resp, err := model.Collect(ctx, llm, model.Request{
				Contents: []core.Content{core.NewTextContent(core.RoleUser, prompt)},
			})
			if err != nil {
				return nil, err
			}

			answer := strings.TrimSpace(resp.Content.Text())
			if answer == "" {
				return nil, model.ErrNoResponse
			}
			return answer, nil
		},
	)
}
