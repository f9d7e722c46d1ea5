package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ClientConfig configures the HTTP analysis client.
type ClientConfig struct {
	BaseURL string // e.g. http://127.0.0.1:5000
	Logger  zerolog.Logger
	Timeout time.Duration // per-call timeout, default 10s
}

// Client calls the analysis server's /analyze endpoint. The server is
// stateless per call and caches positions on its side; the client sends
// the position and depth and takes whatever comes back.
type Client struct {
	base string
	hc   *http.Client
	log  zerolog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis server base URL required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		hc:   &http.Client{Timeout: cfg.Timeout},
		log:  cfg.Logger,
	}, nil
}

type analyzeRequest struct {
	FEN   string `json:"fen"`
	Depth int    `json:"depth"`
}

// Analyze implements Analyzer.
func (c *Client) Analyze(ctx context.Context, position string, depth int) (*Analysis, error) {
	body, err := json.Marshal(analyzeRequest{FEN: position, Depth: depth})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analyze call: status %d", resp.StatusCode)
	}

	var out Analysis
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.BestMove == "" {
		return nil, fmt.Errorf("response missing bestmove")
	}
	return &out, nil
}

// Health probes the server's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("health call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health call: status %d", resp.StatusCode)
	}
	return nil
}
