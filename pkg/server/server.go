// Package server assembles the smart resource fetcher: dataset, model
// backend, search pipelines, retrieval agent and HTTP surface.
//
// Usage:
//
//	srv, err := server.New(ctx, config.Load())
//	defer srv.Close(ctx)
//	http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/internal/agent"
	"github.com/smartfetcher/smartfetcher/internal/api"
	"github.com/smartfetcher/smartfetcher/internal/api/handlers"
	"github.com/smartfetcher/smartfetcher/internal/config"
	"github.com/smartfetcher/smartfetcher/internal/extractor"
	"github.com/smartfetcher/smartfetcher/internal/linkverify"
	"github.com/smartfetcher/smartfetcher/internal/llm"
	"github.com/smartfetcher/smartfetcher/internal/mcpgw"
	"github.com/smartfetcher/smartfetcher/internal/mcpserver"
	"github.com/smartfetcher/smartfetcher/internal/nlsearch"
	"github.com/smartfetcher/smartfetcher/internal/semantic"
	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/internal/telemetry"
	"github.com/smartfetcher/smartfetcher/internal/tools"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// ServiceName is reported by /version and the MCP handshake.
const ServiceName = "smart-fetcher"

// Server holds the initialized service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Port is the port the server should listen on.
	Port int

	// Health is the startup snapshot served by /health.
	Health models.HealthSnapshot

	Index *store.MemoryIndex
	Agent *agent.Agent

	closers []func(context.Context) error
}

// New initializes every component. The backend is probed once here; when it
// is unreachable the service still starts, with keyword extraction, tag
// search answering 503 and the agent reporting itself unavailable.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{Port: cfg.Port}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.closers = append(s.closers, shutdown)

	idx, err := store.NewDefaultIndex(cfg.Dataset.Size, cfg.Dataset.Seed)
	if err != nil {
		return nil, fmt.Errorf("build resource index: %w", err)
	}
	s.Index = idx
	log.Info().Int("resources", idx.Count()).Int64("seed", cfg.Dataset.Seed).Msg("Resource index loaded")

	// ── Model backend ───────────────────────────────────────
	ollama := llm.NewOllamaClient(cfg.Backend.Host, cfg.Backend.Model, cfg.Backend.RequestTimeout)
	probe := ollama.Probe(ctx, cfg.Backend.ProbeTimeout)
	s.Health = models.HealthSnapshot{
		Status:          probe.Status,
		BackendStatus:   probe.BackendStatus,
		BackendMessage:  probe.Message,
		ModelName:       cfg.Backend.Model,
		ResourcesLoaded: idx.Count(),
	}
	log.Info().
		Str("status", string(probe.Status)).
		Str("backend", string(probe.BackendStatus)).
		Str("model", cfg.Backend.Model).
		Msg(probe.Message)

	// completion stays a nil interface when the backend is unreachable.
	var completion contracts.CompletionClient
	if probe.BackendStatus != models.BackendDisconnected {
		completion = ollama
		if cfg.Cache.Enabled {
			cached, err := llm.NewCachedClient(ollama, cfg.Cache.Dir)
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.Cache.Dir).Msg("Response cache unavailable, running uncached")
			} else {
				completion = cached
				s.closers = append(s.closers, func(context.Context) error { return cached.Close() })
				log.Info().Str("dir", cfg.Cache.Dir).Msg("Response cache enabled")
			}
		}
	}

	// ── Search pipelines ────────────────────────────────────
	ex := extractor.New(completion, idx.UniqueTags(ctx),
		extractor.WithAmbiguityThreshold(cfg.Search.AmbiguityThreshold),
	)
	searcher := nlsearch.New(ex, idx, cfg.Search.ResultCap)
	verifier := linkverify.NewVerifier(idx)
	log.Info().Str("mode", string(ex.Mode())).Msg("Tag extractor initialized")

	var matcher contracts.TagMatcher
	if completion != nil {
		finder, err := semantic.NewFinder(completion, idx)
		if err != nil {
			return nil, fmt.Errorf("init semantic search: %w", err)
		}
		matcher = finder
	}

	// ── Tools, agent, MCP ───────────────────────────────────
	events := sessionlog.New(log.Logger)
	gw := mcpgw.NewGateway(ServiceName, cfg.Version)
	for _, t := range []tools.Tool{
		tools.SearchResources(searcher, events),
		tools.ValidateResource(verifier, events),
	} {
		if err := gw.Register(t); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}

	s.Agent = agent.New(completion, gw, searcher, verifier,
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithSessionLogger(events),
	)

	mcpSrv := mcpserver.New(gw, ServiceName, cfg.Version)

	h := &handlers.Handlers{
		Index:          idx,
		Matcher:        matcher,
		Searcher:       searcher,
		Agent:          s.Agent,
		Health:         &s.Health,
		AgentTimeout:   cfg.Agent.Timeout,
		AgentMaxTokens: cfg.Agent.MaxTokens,
		Version:        cfg.Version,
	}
	s.Handler = api.NewRouter(h, mcpserver.Handler(mcpSrv))
	return s, nil
}

// Close flushes telemetry and releases the response cache.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
