package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/answermesh/tool"
)

// VisitName is the capability name of the page visitor.
const VisitName = "visit_webpage"

// DefaultMaxOutputLength bounds the markdown returned for one page.
const DefaultMaxOutputLength = 100000

var blankLines = regexp.MustCompile(`\n{3,}`)

// VisitOptions configures the page visitor.
type VisitOptions struct {
	HTTPClient *http.Client
	// MaxOutputLength truncates long pages. Defaults to 100000 characters.
	MaxOutputLength int
	// CacheSize is the number of pages kept in the LRU cache. Zero disables
	// caching. Defaults to 64.
	CacheSize int
	// Timeout bounds one page fetch. Defaults to 20s.
	Timeout   time.Duration
	UserAgent string
}

type visitTool struct {
	opts      VisitOptions
	converter *md.Converter
	cache     *lru.Cache[string, string]
}

// NewVisit returns the visit_webpage capability.
func NewVisit(optFns ...func(o *VisitOptions)) (tool.Tool, error) {
	opts := VisitOptions{
		HTTPClient:      http.DefaultClient,
		MaxOutputLength: DefaultMaxOutputLength,
		CacheSize:       64,
		Timeout:         20 * time.Second,
		UserAgent:       "answermesh/1.0 (+visit_webpage)",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	t := &visitTool{
		opts:      opts,
		converter: md.NewConverter("", true, nil),
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create page cache: %w", err)
		}
		t.cache = cache
	}

	return t, nil
}

func (t *visitTool) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        VisitName,
		Description: "Visits a webpage at the given url and reads its content as a markdown string. Use this to browse webpages.",
		Inputs: []tool.Input{
			{Name: "url", Type: tool.TypeString, Description: "The url of the webpage to visit."},
		},
		OutputType: tool.TypeString,
		Kind:       tool.KindPrimitive,
	}
}

func (t *visitTool) Call(ctx context.Context, args map[string]any) (any, error) {
	rawURL, err := tool.StringArg(VisitName, args, "url")
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, tool.NewToolError(VisitName, fmt.Sprintf("invalid url %q: must be http or https", rawURL), tool.CodeValidation)
	}

	if t.cache != nil {
		if page, ok := t.cache.Get(rawURL); ok {
			return page, nil
		}
	}

	html, err := t.fetch(ctx, rawURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.New("the request timed out. Please try again later or check the URL")
		}
		return nil, fmt.Errorf("error fetching the webpage: %w", err)
	}

	page, err := t.toMarkdown(html)
	if err != nil {
		return nil, err
	}
	page = Truncate(page, t.opts.MaxOutputLength)

	if t.cache != nil {
		t.cache.Add(rawURL, page)
	}

	return page, nil
}

func (t *visitTool) fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)

	resp, err := t.opts.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// toMarkdown strips non-content elements and converts the page.
func (t *visitTool) toMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, iframe, svg").Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render HTML: %w", err)
	}

	markdown, err := t.converter.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	return blankLines.ReplaceAllString(strings.TrimSpace(markdown), "\n\n"), nil
}

// Truncate keeps the head and tail of content when it exceeds maxLength
// characters and marks the cut.
func Truncate(content string, maxLength int) string {
	runes := []rune(content)
	if maxLength <= 0 || len(runes) <= maxLength {
		return content
	}
	half := maxLength / 2
	return string(runes[:half]) +
		fmt.Sprintf("\n..._This content has been truncated to stay below %d characters_...\n", maxLength) +
		string(runes[len(runes)-half:])
}
