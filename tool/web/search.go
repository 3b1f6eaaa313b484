package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/answermesh/tool"
)

// SearchName is the capability name of the search tool.
const SearchName = "web_search"

// DefaultSerperURL is the Serper search endpoint.
const DefaultSerperURL = "https://google.serper.dev/search"

// ErrMissingAPIKey is returned when the search tool has no API key.
var ErrMissingAPIKey = errors.New("missing serper api key")

// SearchOptions configures the search tool.
type SearchOptions struct {
	// Endpoint overrides the Serper URL.
	Endpoint   string
	HTTPClient *http.Client
	// Timeout bounds one search. Defaults to 20s.
	Timeout time.Duration
}

type searchTool struct {
	apiKey string
	opts   SearchOptions
}

// NewSearch returns the web_search capability.
func NewSearch(apiKey string, optFns ...func(o *SearchOptions)) (tool.Tool, error) {
	opts := SearchOptions{
		Endpoint:   DefaultSerperURL,
		HTTPClient: http.DefaultClient,
		Timeout:    20 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &searchTool{apiKey: apiKey, opts: opts}, nil
}

func (t *searchTool) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        SearchName,
		Description: "Performs a google web search for your query then returns a string of the top search results.",
		Inputs: []tool.Input{
			{Name: "query", Type: tool.TypeString, Description: "The search query to perform."},
			{Name: "filter_year", Type: tool.TypeInteger, Description: "Optionally restrict results to a certain year", Optional: true},
		},
		OutputType: tool.TypeString,
		Kind:       tool.KindPrimitive,
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	TBS string `json:"tbs,omitempty"`
}

type serperResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  string `json:"source"`
}

type serperResponse struct {
	Organic []serperResult `json:"organic"`
}

func (t *searchTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query, err := tool.StringArg(SearchName, args, "query")
	if err != nil {
		return nil, err
	}

	payload := serperRequest{Q: query}
	year := 0
	switch v := args["filter_year"].(type) {
	case float64:
		year = int(v)
	case int:
		year = v
	}
	if year > 0 {
		payload.TBS = fmt.Sprintf("cdr:1,cd_min:01/01/%d,cd_max:12/31/%d", year, year)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", t.apiKey)

	resp, err := t.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed serperResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Organic) == 0 {
		if year > 0 {
			return nil, fmt.Errorf("no results found for query: '%s' with filtering on year=%d. Use a less restrictive query or do not filter on year", query, year)
		}
		return nil, fmt.Errorf("no results found for query: '%s'. Use a less restrictive query", query)
	}

	return formatResults(parsed.Organic), nil
}

// formatResults renders organic results as a numbered markdown list.
func formatResults(results []serperResult) string {
	snippets := make([]string, 0, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. [%s](%s)", i, r.Title, r.Link)
		if r.Date != "" {
			b.WriteString("\nDate published: " + r.Date)
		}
		if r.Source != "" {
			b.WriteString("\nSource: " + r.Source)
		}
		if r.Snippet != "" {
			b.WriteString("\n" + r.Snippet)
		}
		snippets = append(snippets, b.String())
	}
	return "## Search Results\n" + strings.Join(snippets, "\n\n")
}
