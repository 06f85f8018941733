package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/infrastructure/resilience"
)

// Client talks to a local Ollama instance and implements the text generator
// port. All calls go through the resilience runner; failures that survive
// retries come back wrapped as temporary so callers can degrade gracefully.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	runner     *resilience.Runner
	log        *slog.Logger
}

func New(baseURL, model string, timeout time.Duration, runner *resilience.Runner, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		runner:     runner,
		log:        log,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "generate", map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	})
}

// GenerateJSON asks the model for JSON output via Ollama's format option.
// The response is still returned raw; parsing stays with the caller.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "generate_json", map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	})
}

func (c *Client) generate(ctx context.Context, operation string, payload map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	err := c.runner.Do(ctx, operation, classifyTransportError, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", payload, &response, operation)
	})
	if err != nil {
		return "", wrapTemporary(operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

// wrapTemporary marks retryable transport failures so the pipeline can tell
// "backend is struggling" apart from hard request errors.
func wrapTemporary(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyTransportError(err).Retry || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
