package chess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/answermesh/tool"
)

// BestMoveName is the capability name of the engine lookup.
const BestMoveName = "BestChessMove"

// DefaultEvalURL is the public chess engine API.
const DefaultEvalURL = "https://stockfish.online/api/s/v2.php"

// BestMoveOptions configures the BestChessMove capability.
type BestMoveOptions struct {
	HTTPClient *http.Client
	// Depth is the engine search depth. Defaults to 15.
	Depth int
	// Timeout bounds one lookup. Defaults to 15s.
	Timeout time.Duration
	// Limiter throttles calls to the public API. Defaults to a limiter of one
	// request per second owned by this instance. Pass the same limiter to
	// several instances to throttle them together. Nil disables throttling.
	Limiter *rate.Limiter
}

// NewEngineLimiter returns the default engine API throttle of one request per
// second.
func NewEngineLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Second), 1)
}

type bestMoveArgs struct {
	FEN string `json:"fen" description:"The FEN (Forsyth-Edwards Notation) representation of the chess position. Example rn1q1rk1/pp2b1pp/2p2n2/3p1pB1/3P4/1QP2N2/PP1N1PPP/R4RK1 b - - 1 11"`
}

type engineResponse struct {
	Success  bool   `json:"success"`
	BestMove string `json:"bestmove"`
	Data     string `json:"data"`
}

// NewBestMove returns the BestChessMove capability querying evalURL.
func NewBestMove(evalURL string, optFns ...func(o *BestMoveOptions)) tool.Tool {
	opts := BestMoveOptions{
		HTTPClient: http.DefaultClient,
		Depth:      15,
		Timeout:    15 * time.Second,
		Limiter:    NewEngineLimiter(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if evalURL == "" {
		evalURL = DefaultEvalURL
	}

	return tool.NewFunctionToolFromStruct(BestMoveName,
		"Get best chess move in coordinate notation based on a FEN representation.",
		bestMoveArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			fen, err := tool.StringArg(BestMoveName, args, "fen")
			if err != nil {
				return nil, err
			}

			if opts.Limiter != nil {
				if err := opts.Limiter.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit: %w", err)
				}
			}

			return bestMove(ctx, opts, evalURL, fen)
		},
	)
}

func bestMove(ctx context.Context, opts BestMoveOptions, evalURL, fen string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("fen", strings.TrimSpace(fen))
	query.Set("depth", strconv.Itoa(opts.Depth))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, evalURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error getting chess evaluation: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error getting chess evaluation: %d", resp.StatusCode)
	}

	var parsed engineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Success {
		detail := parsed.Data
		if detail == "" {
			detail = "engine reported failure"
		}
		return "", fmt.Errorf("error getting chess evaluation: %s", detail)
	}

	// "bestmove e2e4 ponder e7e5"
	fields := strings.Fields(parsed.BestMove)
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected bestmove %q", parsed.BestMove)
	}
	return fields[1], nil
}
