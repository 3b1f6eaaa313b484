package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/afero"

	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/logging"
)

// DefaultBaseURL is the public scoring service.
const DefaultBaseURL = "https://agents-course-unit4-scoring.hf.space"

// FallbackPolicy selects what happens when the scoring service cannot be
// reached.
type FallbackPolicy int

const (
	// FallbackDisabled surfaces service errors to the caller.
	FallbackDisabled FallbackPolicy = iota
	// FallbackLocal serves questions from the local cache and task files from
	// the local files directory.
	FallbackLocal
)

func (p FallbackPolicy) String() string {
	if p == FallbackLocal {
		return "local"
	}
	return "disabled"
}

var (
	// ErrNoQuestions is returned when no question is available.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoAnswers is returned by Submit when nothing was persisted for the
	// identity yet.
	ErrNoAnswers = errors.New("no answers to submit")
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server responded with status %d: %s", e.StatusCode, e.Detail)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// HTTPClient performs requests. Defaults to a client without timeout;
	// per-request timeouts are applied via context.
	HTTPClient *http.Client
	// Fs holds the question cache. Defaults to the OS filesystem.
	Fs afero.Fs
	// CachePath is where fetched questions are cached. Defaults to
	// "questions.json".
	CachePath string
	// Fallback selects the behavior when the service is unavailable.
	Fallback FallbackPolicy
	// RequestTimeout bounds one question request. Defaults to 10s.
	RequestTimeout time.Duration
	// SubmitTimeout bounds the submission request. Defaults to 60s.
	SubmitTimeout time.Duration
	// MaxTries bounds attempts per question request. Defaults to 3.
	MaxTries uint
	// BackOff creates the retry schedule. Defaults to exponential backoff.
	BackOff func() backoff.BackOff
	// Username is sent with submissions. Defaults to the identity.
	Username string
	// SpaceID identifies the agent code repository shown to graders.
	SpaceID string
	// Store holds the persisted answers read by Submit.
	Store core.ResultStore
	// Logger receives client logs.
	Logger logging.Logger
}

// Client is the scoring service client. It implements core.QuestionSource.
type Client struct {
	baseURL string
	opts    ClientOptions
}

var _ core.QuestionSource = (*Client)(nil)

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HTTPClient:     http.DefaultClient,
		Fs:             afero.NewOsFs(),
		CachePath:      "questions.json",
		RequestTimeout: 10 * time.Second,
		SubmitTimeout:  60 * time.Second,
		MaxTries:       3,
		BackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), opts: opts}
}

// Questions returns every question of the service and refreshes the local
// cache.
func (c *Client) Questions(ctx context.Context) ([]core.Task, error) {
	tasks, err := retryJSON[[]core.Task](ctx, c, "/questions")
	if err == nil {
		c.writeCache(tasks)
		return tasks, nil
	}

	if c.opts.Fallback != FallbackLocal {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	c.opts.Logger.Warn("evaluation.questions.fallback", "cache", c.opts.CachePath, "error", err.Error())

	cached, cacheErr := c.readCache()
	if cacheErr != nil {
		return nil, fmt.Errorf("fetch questions: %w", errors.Join(err, cacheErr))
	}
	return cached, nil
}

// Question returns the question with the given task id.
func (c *Client) Question(ctx context.Context, taskID string) (core.Task, error) {
	tasks, err := c.Questions(ctx)
	if err != nil {
		return core.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return core.Task{}, fmt.Errorf("%w: %s", core.ErrTaskNotFound, taskID)
}

// RandomQuestion returns a question chosen by the service, or a random
// local one under FallbackLocal.
func (c *Client) RandomQuestion(ctx context.Context) (core.Task, error) {
	task, err := retryJSON[core.Task](ctx, c, "/random-question")
	if err == nil {
		return task, nil
	}

	if c.opts.Fallback != FallbackLocal {
		return core.Task{}, fmt.Errorf("fetch random question: %w", err)
	}

	c.opts.Logger.Warn("evaluation.random_question.fallback", "error", err.Error())

	tasks, qErr := c.Questions(ctx)
	if qErr != nil {
		return core.Task{}, qErr
	}
	if len(tasks) == 0 {
		return core.Task{}, ErrNoQuestions
	}
	return tasks[rand.IntN(len(tasks))], nil
}

// retryJSON GETs path and decodes the JSON body, retrying transient
// failures. Client errors (4xx) are not retried.
func retryJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		var out T

		reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()

		body, err := c.get(reqCtx, path)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests {
				return out, backoff.Permanent(err)
			}
			c.opts.Logger.Debug("evaluation.request.retry", "path", path, "attempt", attempt, "error", err.Error())
			return out, err
		}

		if err := json.Unmarshal(body, &out); err != nil {
			return out, backoff.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return out, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.opts.BackOff()),
		backoff.WithMaxTries(c.opts.MaxTries),
	)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}
	return body, nil
}

// errorDetail extracts {"detail": ...} from an error body, falling back to
// the first 500 bytes of the raw text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}

func (c *Client) writeCache(tasks []core.Task) {
	data, err := json.MarshalIndent(tasks, "", "    ")
	if err == nil {
		err = afero.WriteFile(c.opts.Fs, c.opts.CachePath, data, 0o644)
	}
	if err != nil {
		c.opts.Logger.Warn("evaluation.questions.cache_failed", "cache", c.opts.CachePath, "error", err.Error())
	}
}

func (c *Client) readCache() ([]core.Task, error) {
	data, err := afero.ReadFile(c.opts.Fs, c.opts.CachePath)
	if err != nil {
		return nil, fmt.Errorf("read question cache: %w", err)
	}
	var tasks []core.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode question cache: %w", err)
	}
	return tasks, nil
}

// Score is the scoring service response to a submission.
type Score struct {
	Username       string  `json:"username"`
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	TotalAttempted int     `json:"total_attempted"`
	Message        string  `json:"message"`
	Timestamp      string  `json:"timestamp"`
}

// String renders the score as a status message.
func (s Score) String() string {
	return fmt.Sprintf("Submission Successful!\nUser: %s\nOverall Score: %s%% (%d/%d correct)\nMessage: %s",
		s.Username, formatScore(s.Score), s.CorrectCount, s.TotalAttempted, s.Message)
}

func formatScore(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}

type submission struct {
	Username  string              `json:"username"`
	AgentCode string              `json:"agent_code"`
	Answers   []map[string]string `json:"answers"`
}

// AgentCodeURL returns the code location reported to graders.
func (c *Client) AgentCodeURL() string {
	return fmt.Sprintf("https://huggingface.co/spaces/%s/tree/main", c.opts.SpaceID)
}

// Submit posts the persisted answers of identity to the scoring service.
func (c *Client) Submit(ctx context.Context, identity string) (*Score, error) {
	if c.opts.Store == nil {
		return nil, fmt.Errorf("%w: no result store configured", ErrNoAnswers)
	}

	set, err := c.opts.Store.Load(ctx, identity)
	if err != nil {
		if errors.Is(err, core.ErrResultSetNotFound) {
			return nil, fmt.Errorf("%w for %q", ErrNoAnswers, identity)
		}
		return nil, fmt.Errorf("load answers: %w", err)
	}

	username := c.opts.Username
	if username == "" {
		username = identity
	}

	payload := submission{
		Username:  username,
		AgentCode: c.AgentCodeURL(),
		Answers:   make([]map[string]string, 0, set.Len()),
	}
	for _, r := range set.Results {
		payload.Answers = append(payload.Answers, r.Submission())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	c.opts.Logger.Info("evaluation.submit.start", "answers", len(payload.Answers), "url", c.baseURL+"/submit")

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var score Score
	if err := json.Unmarshal(respBody, &score); err != nil {
		return nil, fmt.Errorf("decode score: %w", err)
	}

	c.opts.Logger.Info("evaluation.submit.done",
		"user", score.Username,
		"score", score.Score,
		"correct", score.CorrectCount,
		"attempted", score.TotalAttempted,
	)

	return &score, nil
}

// SubmitStatus submits and renders the outcome as a human readable message.
// It never fails; errors are part of the message.
func (c *Client) SubmitStatus(ctx context.Context, identity string) string {
	score, err := c.Submit(ctx, identity)
	if err == nil {
		return score.String()
	}

	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrNoAnswers):
		return "Run 'run-one' or 'run-all' to answer questions before trying to submit."
	case errors.As(err, &httpErr):
		return fmt.Sprintf("Submission Failed: Server responded with status %d. Detail: %s", httpErr.StatusCode, httpErr.Detail)
	case errors.Is(err, context.DeadlineExceeded):
		return "Submission Failed: The request timed out."
	default:
		return fmt.Sprintf("Submission Failed: %v", err)
	}
}
