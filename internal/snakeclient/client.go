// Package snakeclient performs the outbound HTTP calls to remote snake
// servers: /start, /move and /end. Failures never surface to the turn loop;
// a snake that times out, errors or answers garbage gets a fallback move.
package snakeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"snake-arena/backend/internal/wire"
)

// MoveResult is the outcome of one /move call, real or fallback
type MoveResult struct {
	SnakeID   string
	Direction wire.Direction
	LatencyMS *int64
	TimedOut  bool
	Shout     string
}

// SnakeURL pairs a board snake ID with the server that plays it
type SnakeURL struct {
	SnakeID string
	URL     string
}

// Client is a shared snake HTTP client. One instance serves all concurrent
// games; the underlying transport keeps per-host connections alive across
// turns.
type Client struct {
	http *http.Client
}

// New creates a snake client. Per-call deadlines come from the caller's
// timeout argument, not the http.Client, so one slow snake cannot pin
// a shared setting.
func New() *Client {
	transport := &http.Transport{
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{Transport: transport},
	}
}

// BuildEndpointURL appends an endpoint segment (start|move|end) to a snake's
// base URL, preserving any query string in place. Trailing slashes on the
// base path are collapsed. Unparseable base URLs fall back to plain string
// concatenation.
func BuildEndpointURL(baseURL, endpoint string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(baseURL, "/") + "/" + endpoint
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + endpoint
	return u.String()
}

// ResolveMove is the total fallback policy: a parsed response wins, otherwise
// the snake continues in its previous direction, or up on turn zero.
func ResolveMove(response string, ok bool, lastMove *wire.Direction) wire.Direction {
	if ok {
		if d, parsed := wire.ParseDirection(response); parsed {
			return d
		}
	}
	if lastMove != nil {
		return *lastMove
	}
	return wire.DirectionUp
}

// RequestMove calls a snake's /move endpoint. It always returns a usable
// MoveResult: timeouts and transport errors produce the fallback direction
// with TimedOut set; an HTTP success with an unparseable body produces the
// fallback with the measured latency kept.
func (c *Client) RequestMove(ctx context.Context, snakeURL string, state *wire.GameState, snakeID string, timeout time.Duration, lastMove *wire.Direction) MoveResult {
	fallback := MoveResult{
		SnakeID:   snakeID,
		Direction: ResolveMove("", false, lastMove),
		TimedOut:  true,
	}

	body, ok := wire.BuildSnakeRequest(state, snakeID)
	if !ok {
		// No request was made, so this is neither a timeout nor a measured call.
		log.Printf("[SNAKE] Snake %s not on board for /move, using fallback", snakeID)
		return MoveResult{
			SnakeID:   snakeID,
			Direction: ResolveMove("", false, lastMove),
		}
	}

	start := time.Now()
	respBody, err := c.post(ctx, BuildEndpointURL(snakeURL, "move"), &body, timeout)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.Printf("[SNAKE] /move failed for snake %s: %v (fallback %s)", snakeID, err, fallback.Direction)
		return fallback
	}

	var moveResp wire.MoveResponse
	if err := json.Unmarshal(respBody, &moveResp); err != nil {
		// The server answered in time; only the body was bad.
		log.Printf("[SNAKE] Unparseable /move response from snake %s: %v", snakeID, err)
		return MoveResult{
			SnakeID:   snakeID,
			Direction: ResolveMove("", false, lastMove),
			LatencyMS: &elapsed,
			TimedOut:  false,
		}
	}

	return MoveResult{
		SnakeID:   snakeID,
		Direction: ResolveMove(moveResp.Move, true, lastMove),
		LatencyMS: &elapsed,
		TimedOut:  false,
		Shout:     moveResp.Shout,
	}
}

// RequestStart calls /start. Fire and forget: errors are logged and dropped
// so a broken snake cannot block the match from starting.
func (c *Client) RequestStart(ctx context.Context, snakeURL string, state *wire.GameState, snakeID string, timeout time.Duration) {
	c.fireAndForget(ctx, snakeURL, "start", state, snakeID, timeout)
}

// RequestEnd calls /end. Fire and forget, same policy as /start.
func (c *Client) RequestEnd(ctx context.Context, snakeURL string, state *wire.GameState, snakeID string, timeout time.Duration) {
	c.fireAndForget(ctx, snakeURL, "end", state, snakeID, timeout)
}

func (c *Client) fireAndForget(ctx context.Context, snakeURL, endpoint string, state *wire.GameState, snakeID string, timeout time.Duration) {
	body, ok := wire.BuildSnakeRequest(state, snakeID)
	if !ok {
		return
	}
	if _, err := c.post(ctx, BuildEndpointURL(snakeURL, endpoint), &body, timeout); err != nil {
		log.Printf("[SNAKE] /%s failed for snake %s: %v", endpoint, snakeID, err)
	}
}

// RequestMovesParallel fans out /move calls to every alive snake that has a
// URL and waits for all of them. Each call is bounded by timeout, so the
// whole fan-out is too.
func (c *Client) RequestMovesParallel(ctx context.Context, state *wire.GameState, snakeURLs []SnakeURL, timeout time.Duration, lastMoves map[string]wire.Direction) []MoveResult {
	urlsByID := make(map[string]string, len(snakeURLs))
	for _, su := range snakeURLs {
		urlsByID[su.SnakeID] = su.URL
	}

	alive := wire.AliveSnakes(state)
	results := make([]MoveResult, 0, len(alive))
	indexByID := make(map[string]int, len(alive))
	for _, s := range alive {
		if _, ok := urlsByID[s.ID]; !ok {
			continue
		}
		indexByID[s.ID] = len(results)
		results = append(results, MoveResult{})
	}

	var wg sync.WaitGroup
	for _, s := range alive {
		snakeURL, ok := urlsByID[s.ID]
		if !ok {
			continue
		}
		var lastMove *wire.Direction
		if d, ok := lastMoves[s.ID]; ok {
			last := d
			lastMove = &last
		}
		wg.Add(1)
		go func(snakeID, snakeURL string, lastMove *wire.Direction) {
			defer wg.Done()
			results[indexByID[snakeID]] = c.RequestMove(ctx, snakeURL, state, snakeID, timeout, lastMove)
		}(s.ID, snakeURL, lastMove)
	}
	wg.Wait()

	return results
}

// RequestStartParallel calls /start for every snake concurrently
func (c *Client) RequestStartParallel(ctx context.Context, state *wire.GameState, snakeURLs []SnakeURL, timeout time.Duration) {
	c.broadcastParallel(ctx, "start", state, snakeURLs, timeout)
}

// RequestEndParallel calls /end for every snake concurrently
func (c *Client) RequestEndParallel(ctx context.Context, state *wire.GameState, snakeURLs []SnakeURL, timeout time.Duration) {
	c.broadcastParallel(ctx, "end", state, snakeURLs, timeout)
}

func (c *Client) broadcastParallel(ctx context.Context, endpoint string, state *wire.GameState, snakeURLs []SnakeURL, timeout time.Duration) {
	var wg sync.WaitGroup
	for _, su := range snakeURLs {
		if _, ok := wire.FindSnake(state, su.SnakeID); !ok {
			continue
		}
		wg.Add(1)
		go func(su SnakeURL) {
			defer wg.Done()
			c.fireAndForget(ctx, su.URL, endpoint, state, su.SnakeID, timeout)
		}(su)
	}
	wg.Wait()
}

// post sends one JSON request and reads the full response body within the
// per-call timeout, so slow-trickling servers are bounded too.
func (c *Client) post(ctx context.Context, rawURL string, body *wire.GameState, timeout time.Duration) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
