package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jordanhubbard/astrohub/internal/bot"
	"github.com/jordanhubbard/astrohub/internal/flow"
	"github.com/jordanhubbard/astrohub/internal/health"
	"github.com/jordanhubbard/astrohub/internal/httpapi"
	"github.com/jordanhubbard/astrohub/internal/logging"
	"github.com/jordanhubbard/astrohub/internal/metrics"
	"github.com/jordanhubbard/astrohub/internal/providers"
	"github.com/jordanhubbard/astrohub/internal/providers/gemini"
	"github.com/jordanhubbard/astrohub/internal/providers/mistral"
	"github.com/jordanhubbard/astrohub/internal/providers/openai"
	"github.com/jordanhubbard/astrohub/internal/ratelimit"
	"github.com/jordanhubbard/astrohub/internal/repair"
	"github.com/jordanhubbard/astrohub/internal/router"
	"github.com/jordanhubbard/astrohub/internal/session"
	"github.com/jordanhubbard/astrohub/internal/store"
	"github.com/jordanhubbard/astrohub/internal/tracing"
)

// Transport is the chat connection as the server needs it: outbound
// messages plus photo downloads for vision.
type Transport interface {
	bot.Transport
	router.FileFetcher
}

type Server struct {
	cfg Config

	r *chi.Mux

	store      *store.SQLiteStore
	engine     *router.Engine
	health     *health.Tracker
	metrics    *metrics.Registry
	limiter    *ratelimit.Limiter
	admin      *httpapi.AdminToken
	machine    *flow.Machine
	dispatcher *bot.Dispatcher
	logger     *slog.Logger
}

// NewServer wires the store, provider chain, conversation machine and admin
// API around out.
func NewServer(cfg Config, out Transport) (*Server, error) {
	logger := logging.Setup(cfg.LogLevel)

	overrides, err := LoadProvidersFile(cfg.ProvidersFile)
	if err != nil {
		return nil, err
	}

	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database initialized", slog.String("path", cfg.DBPath))

	validator, err := repair.NewValidator()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("report schemas: %w", err)
	}

	m := metrics.New()
	ht := health.NewTracker(health.DefaultThresholds(), health.WithOnChange(func(id string, s health.State) {
		m.SetProviderState(id, s.Level())
		if s != health.StateHealthy {
			logger.Warn("provider health changed", slog.String("provider", id), slog.String("state", string(s)))
		}
	}))
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second

	eng := router.NewEngine(router.EngineConfig{Timeout: timeout})
	eng.SetHealthChecker(ht)
	eng.SetObserver(m)
	mis := registerProviders(eng, ht, cfg, overrides, timeout, logger)

	var vision flow.VisionCompleter
	if cfg.PalmVision {
		v := router.NewVision(mis, cfg.MistralVisionModel, out, timeout)
		v.SetObserver(m)
		if v.Available() {
			vision = v
			logger.Info("palm vision enabled", slog.String("provider", mis.ID()), slog.String("model", cfg.MistralVisionModel))
		} else {
			logger.Warn("PALM_VISION is on but MISTRAL_API_KEY is missing; palm reports use text only")
		}
	}

	pipeline := flow.NewPipeline(eng, vision, validator, db)
	pipeline.SetRecorder(m)

	machine := flow.NewMachine(flow.Config{
		OperatorID:    cfg.OperatorID,
		NatalStepwise: cfg.NatalStepwise,
	}, session.NewMemoryStore(), db, out, pipeline)
	machine.SetRecorder(m)

	svc := bot.NewService(bot.Config{OperatorID: cfg.OperatorID, TestMode: cfg.TestMode}, out, machine, db)
	dispatcher := bot.NewDispatcher(svc.Handle, svc.Intercept)

	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "astrohub_admin_rate_limited_total",
		Help: "Admin API requests rejected by the rate limiter",
	})
	m.Register(rejected)
	limiter := ratelimit.New(float64(cfg.RateLimitRPS), cfg.RateLimitBurst, ratelimit.WithCounter(rejected))

	admin, err := httpapi.LoadAdminToken(cfg.AdminToken, cfg.DBPath, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(limiter.Middleware)
	r.Use(tracing.Middleware("astrohub.admin"))

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Store:     db,
		Providers: eng,
		Health:    ht,
		Metrics:   m,
		Admin:     admin,
	})

	if cfg.TestMode {
		logger.Warn("TEST_MODE is on: buy buttons skip payment")
	}
	if cfg.OperatorID == 0 {
		logger.Warn("ADMIN_ID not set: operator commands are disabled")
	}

	return &Server{
		cfg:        cfg,
		r:          r,
		store:      db,
		engine:     eng,
		health:     ht,
		metrics:    m,
		limiter:    limiter,
		admin:      admin,
		machine:    machine,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// registerProviders adds the adapters in the fixed fallback order and
// returns the mistral adapter, which also serves vision.
func registerProviders(eng *router.Engine, ht *health.Tracker, cfg Config, overrides map[string]ProviderOverride,
	timeout time.Duration, logger *slog.Logger) *mistral.Adapter {
	opts := func(id string) []providers.Option {
		o := overrides[id]
		return []providers.Option{
			providers.WithHTTPClient(tracing.HTTPClient(0)),
			providers.WithTimeout(timeout),
			providers.WithModels(o.Models...),
		}
	}

	oa := openai.New("openai", cfg.OpenAIKey, overrides["openai"].BaseURL, opts("openai")...)
	gm := gemini.New("gemini", cfg.GeminiKey, overrides["gemini"].BaseURL, opts("gemini")...)
	mis := mistral.New("mistral", cfg.MistralKey, overrides["mistral"].BaseURL, opts("mistral")...)

	for _, a := range []router.Sender{oa, gm, mis} {
		eng.RegisterAdapter(a)
		ht.Register(a.ID())
		logger.Info("registered provider",
			slog.String("provider", a.ID()),
			slog.Bool("configured", a.Configured()),
			slog.Any("models", a.Models()),
		)
	}
	if !eng.Configured() {
		logger.Warn("no LLM provider keys set: every report will fail with a soft error")
	}
	return mis
}

func (s *Server) Router() http.Handler { return s.r }

// Dispatcher receives chat events from the transport.
func (s *Server) Dispatcher() *bot.Dispatcher { return s.dispatcher }

// Engine exposes the provider chain, mainly for tests.
func (s *Server) Engine() *router.Engine { return s.engine }

// Run performs background maintenance until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.limiter.Run(ctx, time.Minute)
	return nil
}

// Reload applies the settings that can change without a restart.
func (s *Server) Reload(cfg Config) {
	logging.SetLevel(cfg.LogLevel)
	s.cfg.LogLevel = cfg.LogLevel
	if s.admin.Rotate(cfg.AdminToken) {
		s.logger.Info("admin token rotated")
	}
	s.logger.Info("configuration reloaded", slog.String("log_level", cfg.LogLevel))
}

// Close waits for in-flight chat events, then closes the store.
func (s *Server) Close() error {
	s.dispatcher.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
