package main

import (
	"context"
	"net/http"
	"time"

	"github.com/vinayprograms/nexa/config"
	"github.com/vinayprograms/nexa/credentials"
	"github.com/vinayprograms/nexa/llm"
	"github.com/vinayprograms/nexa/logging"
	"github.com/vinayprograms/nexa/ratelimit"
	"github.com/vinayprograms/nexa/search"
	"github.com/vinayprograms/nexa/telemetry"
	"github.com/vinayprograms/nexa/tools"
)

// webSearchBackends are rate limited individually.
var webSearchBackends = []string{tools.BackendBrave, tools.BackendTavily, tools.BackendDuckDuckGo}

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg      *config.Config
	creds    *credentials.Credentials
	logger   *logging.Logger
	limiter  *ratelimit.MemoryLimiter
	exporter telemetry.Exporter
	provider *telemetry.Provider
}

func loadApp(ctx context.Context, opts *cliOptions) (*app, error) {
	cfg, cfgPath, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
	if cfgPath != "" {
		logger.Debug("config_loaded", map[string]interface{}{"path": cfgPath})
	}

	creds, credPath, err := credentials.Load()
	if err != nil {
		return nil, err
	}
	if credPath != "" {
		logger.Debug("credentials_loaded", map[string]interface{}{"path": credPath})
	}

	a := &app{
		cfg:      cfg,
		creds:    creds,
		logger:   logger,
		limiter:  ratelimit.NewMemoryLimiter(),
		exporter: telemetry.NewNoopExporter(),
	}
	for _, backend := range webSearchBackends {
		a.limiter.SetCapacity(backend, cfg.Tools.RequestsPerMinute, time.Minute)
	}

	if cfg.Telemetry.EventsFile != "" {
		exp, err := telemetry.NewExporter("file", cfg.Telemetry.EventsFile)
		if err != nil {
			return nil, err
		}
		a.exporter = exp
	}

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.InitProvider(ctx, telemetry.ProviderConfigFrom(cfg.Telemetry, version))
		if err != nil {
			// Tracing is optional; searches still work without it.
			logger.Warn("tracing_disabled", map[string]interface{}{"error": err.Error()})
		} else {
			a.provider = provider
			logger.Info("tracing_enabled", map[string]interface{}{
				"endpoint": cfg.Telemetry.Endpoint,
				"project":  cfg.Telemetry.Project,
			})
		}
	}
	return a, nil
}

func (a *app) factoryConfig() llm.FactoryConfig {
	return llm.FactoryConfig{
		Provider:    a.cfg.LLM.Provider,
		BaseURL:     a.cfg.LLM.BaseURL,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
		Keys:        a.creds,
		Tracing:     a.provider != nil,
	}
}

func (a *app) toolsConfig() tools.Config {
	return tools.Config{
		Credentials: a.creds,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Limiter:     a.limiter,
		Logger:      a.logger.WithComponent("tools"),
		Backend:     a.cfg.Tools.WebSearchBackend,
		TopK:        a.cfg.Tools.TopK,
		MaxChars:    a.cfg.Tools.MaxChars,
		Timeout:     a.cfg.Tools.Timeout,
	}
}

func (a *app) newEngine(ctx context.Context) (*search.Engine, error) {
	return search.New(ctx, search.Config{
		Candidates:   a.cfg.LLM.Models,
		LLM:          a.factoryConfig(),
		Tools:        a.toolsConfig(),
		CacheTTL:     a.cfg.Search.CacheTTL,
		CacheEnabled: a.cfg.CacheOn(),
	}, search.WithLogger(a.logger.WithComponent("search")), search.WithExporter(a.exporter))
}

// close releases telemetry and the limiter. serve registers the same steps
// with the shutdown coordinator instead.
func (a *app) close(ctx context.Context) {
	_ = a.exporter.Close()
	if a.provider != nil {
		_ = a.provider.Shutdown(ctx)
	}
	_ = a.limiter.Close()
}
