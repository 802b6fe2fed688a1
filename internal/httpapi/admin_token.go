package httpapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const adminTokenFile = ".admin-token"

// AdminToken is the bearer token guarding /admin/v1. It is kept in
// .admin-token beside the SQLite file so astrohubctl keeps working across
// restarts, and can be rotated on SIGHUP.
type AdminToken struct {
	path   string // "" for in-memory databases
	logger *slog.Logger

	mu    sync.RWMutex
	value string
}

// LoadAdminToken picks the configured token, else the persisted one, else a
// new random one, and writes the result back to disk.
func LoadAdminToken(configured, dbPath string, logger *slog.Logger) (*AdminToken, error) {
	t := &AdminToken{path: tokenPath(dbPath), logger: logger}
	value := configured
	if value == "" {
		value = t.load()
	}
	if value == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate admin token: %w", err)
		}
		value = hex.EncodeToString(buf)
		logger.Warn("ASTROHUB_ADMIN_TOKEN not set, generated one", slog.String("file", t.path))
	}
	t.value = value
	t.save(value)
	return t, nil
}

func (t *AdminToken) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Matches compares in constant time.
func (t *AdminToken) Matches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(t.Value())) == 1
}

// Rotate replaces the token and reports whether it changed. An empty value
// keeps the current token.
func (t *AdminToken) Rotate(value string) bool {
	if value == "" {
		return false
	}
	t.mu.Lock()
	changed := value != t.value
	t.value = value
	t.mu.Unlock()
	if changed {
		t.save(value)
	}
	return changed
}

// Middleware answers 401 unless the request carries "Bearer <token>".
func (t *AdminToken) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch {
		case !ok || got == "":
			t.logger.Warn("admin auth: missing token", slog.String("ip", r.RemoteAddr), slog.String("path", r.URL.Path))
			jsonError(w, "authorization required", http.StatusUnauthorized)
		case !t.Matches(got):
			t.logger.Warn("admin auth: invalid token", slog.String("ip", r.RemoteAddr), slog.String("path", r.URL.Path))
			jsonError(w, "invalid admin token", http.StatusUnauthorized)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// tokenPath accepts plain paths and file: DSNs with query options.
func tokenPath(dbPath string) string {
	p, _, _ := strings.Cut(strings.TrimPrefix(dbPath, "file:"), "?")
	if p == "" || p == ":memory:" {
		return ""
	}
	return filepath.Join(filepath.Dir(p), adminTokenFile)
}

func (t *AdminToken) load() string {
	if t.path == "" {
		return ""
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (t *AdminToken) save(value string) {
	if t.path == "" {
		return
	}
	if err := os.WriteFile(t.path, []byte(value+"\n"), 0o600); err != nil {
		t.logger.Warn("failed to write admin token file", slog.String("error", err.Error()))
	}
}
