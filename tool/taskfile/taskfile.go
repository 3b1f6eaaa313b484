// Package taskfile provides the capability that downloads task attachments.
package taskfile

import (
	"context"

	"github.com/hupe1980/answermesh/tool"
)

// Name is the capability name exposed to models.
const Name = "get_task_file_tool"

// Fetcher downloads the attachment of a task and returns its absolute path.
// *evaluation.FileFetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, taskID, fileName string) (string, error)
}

// New returns the get_task_file_tool capability backed by fetcher.
func New(fetcher Fetcher) tool.Tool {
	return tool.NewFunctionTool(Name,
		"If a file_name is provided, download file associated with a given task_id. Get absolute file path",
		[]tool.Input{
			{Name: "task_id", Type: tool.TypeString, Description: "Task ID (required)"},
			{Name: "file_name", Type: tool.TypeString, Description: "File name (required)"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			taskID, err := tool.StringArg(Name, args, "task_id")
			if err != nil {
				return nil, err
			}
			fileName, err := tool.StringArg(Name, args, "file_name")
			if err != nil {
				return nil, err
			}
			return fetcher.Fetch(ctx, taskID, fileName)
		},
	)
}
