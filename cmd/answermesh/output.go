package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hupe1980/answermesh/core"
)

const maxQuestionWidth = 60

// formatElapsed renders a duration as "Elapsed time: 1 minutes 5.25 seconds"
// or, below one minute, "Elapsed time: 5.25 seconds".
func formatElapsed(d time.Duration) string {
	total := d.Seconds()
	minutes := int(total / 60)
	seconds := total - float64(minutes*60)

	if minutes > 0 {
		return fmt.Sprintf("Elapsed time: %d minutes %.2f seconds", minutes, seconds)
	}
	return fmt.Sprintf("Elapsed time: %.2f seconds", seconds)
}

// printResults writes the result set as an aligned table.
func printResults(w io.Writer, set core.ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK_ID\tQUESTION\tANSWER")
	for _, r := range set.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.TaskID, oneLine(r.Question, maxQuestionWidth), oneLine(r.Answer, 0))
	}
	return tw.Flush()
}

// oneLine flattens s and shortens it to width runes. Zero disables
// shortening.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
