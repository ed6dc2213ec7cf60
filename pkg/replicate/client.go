package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

const (
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultPollInterval = 250 * time.Millisecond

	// defaultMaxPollAttempts bounds the polling loop. A provider job stuck in
	// a non-terminal status surfaces as a timeout instead of stalling the
	// turn forever.
	defaultMaxPollAttempts = 1200
)

type client struct {
	token           string
	hc              *http.Client
	baseURL         string
	pollInterval    time.Duration
	maxPollAttempts int
}

func NewClient(token string) *client {
	return &client{
		token:           token,
		hc:              &http.Client{},
		baseURL:         defaultBaseURL,
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

type Prediction struct {
	ID      string          `json:"id"`
	Version string          `json:"version"`
	Status  string          `json:"status"`
	Input   map[string]any  `json:"input,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
	Metrics struct {
		PredictTime float64 `json:"predict_time"`
	} `json:"metrics"`
}

// FirstOutputURL extracts the first asset URL from the prediction output,
// which the API returns either as a bare string or an array of strings.
func (p *Prediction) FirstOutputURL() (string, error) {
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil && single != "" {
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}

	return "", fmt.Errorf("no output asset in prediction %s", p.ID)
}

func (c *client) CreatePrediction(ctx context.Context, version string, input map[string]any) (*Prediction, error) {
	body, err := json.Marshal(map[string]any{
		"version": version,
		"input":   input,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	return c.do(req)
}

func (c *client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	return c.do(req)
}

// WaitForCompletion polls the prediction at a fixed interval until it reaches
// a terminal status. A failed job maps to ErrGenerationFailed; exceeding the
// attempt bound maps to ErrTimeout.
func (c *client) WaitForCompletion(ctx context.Context, id string) (*Prediction, error) {
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		p, err := c.GetPrediction(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("polling prediction %s: %w", id, err)
		}

		switch p.Status {
		case "succeeded":
			return p, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("%w: prediction %s: %s", domain.ErrGenerationFailed, id, p.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return nil, fmt.Errorf("%w: prediction %s", domain.ErrTimeout, id)
}

// Download fetches a generated asset from the provider's delivery host.
func (c *client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *client) do(req *http.Request) (*Prediction, error) {
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var p Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding prediction: %w", err)
	}

	return &p, nil
}
