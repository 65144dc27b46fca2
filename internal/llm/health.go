package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// DefaultProbeTimeout bounds each startup reachability check.
const DefaultProbeTimeout = 5 * time.Second

// ProbeResult is the backend health derived at startup.
type ProbeResult struct {
	Status        models.HealthStatus
	BackendStatus models.BackendStatus
	Message       string
}

// CheckConnection reports whether GET {endpoint}/api/tags answers 200.
func (c *OllamaClient) CheckConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// CheckModelRunning reports whether the configured model is loaded, using
// GET {endpoint}/api/ps. The model's base name (before ":") is matched
// case-insensitively against the running model names.
func (c *OllamaClient) CheckModelRunning(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/ps", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("ollama ps check failed")
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var ps struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		log.Warn().Err(err).Msg("ollama ps check failed")
		return false
	}

	base := strings.ToLower(strings.SplitN(c.model, ":", 2)[0])
	if base == "" {
		return false
	}
	for _, m := range ps.Models {
		if strings.Contains(strings.ToLower(m.Name), base) || strings.Contains(strings.ToLower(m.Model), base) {
			return true
		}
	}
	return false
}

// Probe runs both checks concurrently, each bounded by timeout, and derives
// the backend health.
func (c *OllamaClient) Probe(ctx context.Context, timeout time.Duration) ProbeResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var connected, running bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		connected = c.CheckConnection(gctx)
		return nil
	})
	g.Go(func() error {
		running = c.CheckModelRunning(gctx)
		return nil
	})
	_ = g.Wait()

	return deriveHealth(connected, running, c.model)
}

func deriveHealth(connected, running bool, model string) ProbeResult {
	switch {
	case !connected:
		return ProbeResult{
			Status:        models.HealthUnhealthy,
			BackendStatus: models.BackendDisconnected,
			Message:       "Ollama service is not reachable",
		}
	case !running:
		return ProbeResult{
			Status:        models.HealthDegraded,
			BackendStatus: models.BackendModelNotRunning,
			Message: fmt.Sprintf("Ollama is running but model '%s' is not loaded. Run 'ollama run %s' to start the model.",
				model, model),
		}
	default:
		return ProbeResult{
			Status:        models.HealthHealthy,
			BackendStatus: models.BackendConnected,
			Message:       "Ollama and model are ready",
		}
	}
}

// EnsureReady checks the backend before a request that needs the model. It
// returns an error wrapping ErrBackendUnavailable when the model cannot serve.
func (c *OllamaClient) EnsureReady(ctx context.Context) error {
	if c.CheckModelRunning(ctx) {
		return nil
	}
	if !c.CheckConnection(ctx) {
		return fmt.Errorf("ollama service is not reachable at %s: %w", c.endpoint, ErrBackendUnavailable)
	}
	return fmt.Errorf("model '%s' is not running, start it with: ollama run %s: %w", c.model, c.model, ErrBackendUnavailable)
}
