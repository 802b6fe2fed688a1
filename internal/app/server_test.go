package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jordanhubbard/astrohub/internal/bot"
)

var configEnv = []string{
	"BOT_TOKEN", "ADMIN_ID", "TEST_MODE",
	"OPENAI_API_KEY", "GEMINI_API_KEY", "MISTRAL_API_KEY",
	"PALM_VISION", "VISION_PROVIDER", "MISTRAL_VISION_MODEL", "DB_PATH",
	"ASTROHUB_LISTEN_ADDR", "ASTROHUB_LOG_LEVEL", "ASTROHUB_PROVIDER_TIMEOUT_SECS",
	"ASTROHUB_NATAL_STEPWISE", "ASTROHUB_PROVIDERS_FILE", "ASTROHUB_ADMIN_TOKEN",
	"ASTROHUB_CORS_ORIGINS", "ASTROHUB_RATE_LIMIT_RPS", "ASTROHUB_RATE_LIMIT_BURST",
	"ASTROHUB_OTEL_ENABLED", "ASTROHUB_OTEL_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123456:token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.DBPath != "data.sqlite3" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "data.sqlite3")
	}
	if cfg.OperatorID != 0 || cfg.TestMode || cfg.PalmVision || cfg.NatalStepwise {
		t.Errorf("unexpected switches: %+v", cfg)
	}
	if cfg.VisionProvider != "mistral" || cfg.MistralVisionModel != "pixtral-12b" {
		t.Errorf("vision = %q/%q", cfg.VisionProvider, cfg.MistralVisionModel)
	}
	if cfg.ProviderTimeoutSecs != 60 {
		t.Errorf("ProviderTimeoutSecs = %d, want 60", cfg.ProviderTimeoutSecs)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123456:token")
	t.Setenv("ADMIN_ID", "1000")
	t.Setenv("TEST_MODE", "yes")
	t.Setenv("PALM_VISION", "1")
	t.Setenv("VISION_PROVIDER", "Mistral")
	t.Setenv("DB_PATH", "/data/bot.sqlite3")
	t.Setenv("ASTROHUB_LOG_LEVEL", "debug")
	t.Setenv("ASTROHUB_PROVIDER_TIMEOUT_SECS", "15")
	t.Setenv("ASTROHUB_NATAL_STEPWISE", "on")
	t.Setenv("ASTROHUB_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.OperatorID != 1000 {
		t.Errorf("OperatorID = %d, want 1000", cfg.OperatorID)
	}
	if !cfg.TestMode || !cfg.PalmVision || !cfg.NatalStepwise {
		t.Errorf("switches not read: %+v", cfg)
	}
	if cfg.VisionProvider != "mistral" {
		t.Errorf("VisionProvider = %q, want lowercased", cfg.VisionProvider)
	}
	if cfg.DBPath != "/data/bot.sqlite3" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ProviderTimeoutSecs != 15 {
		t.Errorf("ProviderTimeoutSecs = %d, want 15", cfg.ProviderTimeoutSecs)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigInvalidEnvFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123456:token")
	t.Setenv("ADMIN_ID", "not-a-number")
	t.Setenv("TEST_MODE", "maybe")
	t.Setenv("ASTROHUB_PROVIDER_TIMEOUT_SECS", "notanint")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.OperatorID != 0 {
		t.Errorf("OperatorID = %d, want 0 (default on invalid input)", cfg.OperatorID)
	}
	if cfg.TestMode {
		t.Error("TestMode = true, want false (default on invalid input)")
	}
	if cfg.ProviderTimeoutSecs != 60 {
		t.Errorf("ProviderTimeoutSecs = %d, want 60 (default on invalid input)", cfg.ProviderTimeoutSecs)
	}
}

func TestLoadConfigRequiresBotToken(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") {
		t.Fatalf("expected BOT_TOKEN error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"vision provider", func(c *Config) { c.VisionProvider = "openai" }, "VISION_PROVIDER"},
		{"vision model", func(c *Config) { c.PalmVision = true; c.MistralVisionModel = "" }, "MISTRAL_VISION_MODEL"},
		{"negative admin", func(c *Config) { c.OperatorID = -1 }, "ADMIN_ID"},
		{"rps", func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT_RPS"},
		{"burst", func(c *Config) { c.RateLimitBurst = -1 }, "RATE_LIMIT_BURST"},
		{"timeout", func(c *Config) { c.ProviderTimeoutSecs = 0 }, "PROVIDER_TIMEOUT_SECS"},
		{"db path", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestParseProviders(t *testing.T) {
	got, err := parseProviders([]byte(`
providers:
  - id: openai
    base_url: http://localhost:9999
    models: [gpt-4.1-mini]
  - id: mistral
    models: [mistral-large-latest, mistral-small-latest]
`))
	if err != nil {
		t.Fatalf("parseProviders() error: %v", err)
	}
	if got["openai"].BaseURL != "http://localhost:9999" || len(got["openai"].Models) != 1 {
		t.Errorf("openai override = %+v", got["openai"])
	}
	if len(got["mistral"].Models) != 2 {
		t.Errorf("mistral override = %+v", got["mistral"])
	}
	if _, ok := got["gemini"]; ok {
		t.Error("gemini was not listed")
	}

	if got, err := parseProviders(nil); err != nil || len(got) != 0 {
		t.Errorf("empty file: %v, %v", got, err)
	}
}

func TestParseProvidersRejects(t *testing.T) {
	tests := map[string]string{
		"unknown id":    "providers:\n  - id: anthropic\n",
		"duplicate":     "providers:\n  - id: openai\n  - id: openai\n",
		"empty model":   "providers:\n  - id: gemini\n    models: [\"\"]\n",
		"unknown field": "providers:\n  - id: gemini\n    api_key: nope\n",
		"order field":   "order: [mistral, openai]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseProviders([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// fakeTransport records outbound messages.
type fakeTransport struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeTransport) record(s string) error {
	f.mu.Lock()
	f.sent = append(f.sent, s)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Notify(_ context.Context, _ int64, html string) error { return f.record(html) }
func (f *fakeTransport) Send(_ context.Context, _ int64, html string, _ bot.Keyboard) error {
	return f.record(html)
}
func (f *fakeTransport) Edit(_ context.Context, _ int64, _ int, html string, _ bot.Keyboard) error {
	return f.record(html)
}
func (f *fakeTransport) Delete(context.Context, int64, int) error     { return nil }
func (f *fakeTransport) AnswerCallback(context.Context, string) error { return nil }
func (f *fakeTransport) AnswerPreCheckout(context.Context, string, bool, string) error {
	return nil
}
func (f *fakeTransport) SendInvoice(_ context.Context, _ int64, inv bot.Invoice) error {
	return f.record("invoice:" + inv.Payload)
}
func (f *fakeTransport) FetchFile(context.Context, string) ([]byte, string, error) {
	return []byte("img"), "photos/p.jpg", nil
}

func (f *fakeTransport) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestConfig() Config {
	return Config{
		BotToken:            "123456:token",
		VisionProvider:      "mistral",
		MistralVisionModel:  "pixtral-12b",
		DBPath:              ":memory:",
		ListenAddr:          ":0",
		LogLevel:            "error",
		ProviderTimeoutSecs: 5,
		RateLimitRPS:        60,
		RateLimitBurst:      120,
	}
}

func TestNewServer(t *testing.T) {
	srv, err := NewServer(newTestConfig(), &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv.Close() }()

	var ids []string
	for _, a := range srv.Engine().Adapters() {
		ids = append(ids, a.ID())
	}
	if strings.Join(ids, ",") != "openai,gemini,mistral" {
		t.Errorf("adapter order = %v", ids)
	}
	if srv.Engine().Configured() {
		t.Error("no keys were set")
	}
}

func TestNewServerHealthz(t *testing.T) {
	cfg := newTestConfig()
	srv, err := NewServer(cfg, &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv.Close() }()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without keys, got %d", rec.Code)
	}

	cfg.GeminiKey = "g-key"
	srv2, err := NewServer(cfg, &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv2.Close() }()
	rec = httptest.NewRecorder()
	srv2.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with a key, got %d", rec.Code)
	}
}

func TestNewServerExportsProviderState(t *testing.T) {
	srv, err := NewServer(newTestConfig(), &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv.Close() }()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, id := range []string{"openai", "gemini", "mistral"} {
		want := `astrohub_provider_health_state{provider="` + id + `"} 0`
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("missing %s", want)
		}
	}
}

func TestNewServerAdminToken(t *testing.T) {
	cfg := newTestConfig()
	cfg.AdminToken = "admin-secret"
	srv, err := NewServer(cfg, &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv.Close() }()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/providers/health", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":"mistral"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestNewServerProvidersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	doc := "providers:\n  - id: gemini\n    models: [gemini-1.5-pro, gemini-2.0-flash]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := newTestConfig()
	cfg.ProvidersFile = path
	srv, err := NewServer(cfg, &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv.Close() }()

	for _, a := range srv.Engine().Adapters() {
		if a.ID() == "gemini" {
			if got := strings.Join(a.Models(), ","); got != "gemini-1.5-pro,gemini-2.0-flash" {
				t.Errorf("gemini models = %s", got)
			}
		}
	}

	cfg.ProvidersFile = filepath.Join(dir, "missing.yaml")
	if _, err := NewServer(cfg, &fakeTransport{}); err == nil {
		t.Error("expected error for a missing providers file")
	}
}

func TestServerDispatchesChatEvents(t *testing.T) {
	cfg := newTestConfig()
	cfg.TestMode = true
	out := &fakeTransport{}
	srv, err := NewServer(cfg, out)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	srv.Dispatcher().Dispatch(context.Background(), bot.Event{
		Kind: bot.EventCommand, UserID: 7, ChatID: 70, FullName: "Alice", Command: "start",
	})
	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	msgs := out.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "AstroMagic") {
		t.Fatalf("expected the menu, got %v", msgs)
	}
	if !strings.Contains(msgs[0], "тестовый режим") {
		t.Error("test mode note missing")
	}
}

func TestServerReload(t *testing.T) {
	srv, err := NewServer(newTestConfig(), &fakeTransport{})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	defer func() { _ = srv.Close() }()

	newCfg := srv.cfg
	newCfg.LogLevel = "debug"
	srv.Reload(newCfg)
	if srv.cfg.LogLevel != "debug" {
		t.Errorf("after Reload LogLevel = %q, want %q", srv.cfg.LogLevel, "debug")
	}

	newCfg.AdminToken = "rotated"
	srv.Reload(newCfg)
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer rotated")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("rotated token: status %d", rec.Code)
	}
}
