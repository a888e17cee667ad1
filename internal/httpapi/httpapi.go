package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"articleregistry/backend/internal/catalog"
	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/ledger"
	"articleregistry/backend/internal/service"
)

const maxJSONBytes = 1 << 20

type Options struct {
	AllowedOrigin  string
	MaxImportBytes int64
	Logger         *zap.Logger
}

type API struct {
	service        *service.Service
	auth           *AuthManager
	allowedOrigin  string
	maxImportBytes int64
	loginLimiter   *attemptLimiter
	logger         *zap.Logger
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxImport := opts.MaxImportBytes
	if maxImport <= 0 {
		maxImport = 10 << 20
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigin:  opts.AllowedOrigin,
		maxImportBytes: maxImport,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		logger:         logger.Named("http"),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/articles", a.requireAuth(a.handleArticles))
	mux.HandleFunc("/api/v1/articles/", a.requireAuth(a.handleArticleActions))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions))
	mux.HandleFunc("/api/v1/markets", a.requireAuth(a.handleMarkets))
	mux.HandleFunc("/api/v1/pricing/quote", a.requireAuth(a.handleQuote))
	mux.HandleFunc("/api/v1/pricing/select-market", a.requireAuth(a.handleSelectMarket))
	mux.HandleFunc("/api/v1/filters", a.requireAuth(a.handleFilters))
	mux.HandleFunc("/api/v1/favorites", a.requireAuth(a.handleFavorites))
	mux.HandleFunc("/api/v1/favorites/", a.requireAuth(a.handleFavoriteToggle))
	mux.HandleFunc("/api/v1/recent", a.requireAuth(a.handleRecent))
	mux.HandleFunc("/api/v1/recent/", a.requireAuth(a.handleRecentTouch))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	if err := a.service.Health(r.Context()); err != nil {
		a.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok": false,
			"at": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(startedAt)),
		)
	})
}

// writeServiceError maps service sentinels to HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsNotFound(err):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, catalog.ErrNoValidRows), errors.Is(err, ledger.ErrInvalidSale):
		a.writeError(w, http.StatusUnprocessableEntity, err)
	case service.IsInvalid(err):
		a.writeError(w, http.StatusBadRequest, err)
	default:
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the cause of 5xx responses from the client and logs it.
func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		a.logger.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAttachment(w http.ResponseWriter, contentType string, filename string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// pathSegments splits the escaped request path below prefix into unescaped
// segments, so ids containing an encoded slash stay one segment.
func pathSegments(r *http.Request, prefix string) ([]string, error) {
	escaped := r.URL.EscapedPath()
	if !strings.HasPrefix(escaped, prefix) {
		return nil, fmt.Errorf("invalid path %s", escaped)
	}
	tail := strings.Trim(strings.TrimPrefix(escaped, prefix), "/")
	if tail == "" {
		return nil, nil
	}
	parts := strings.Split(tail, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		segment, err := url.PathUnescape(part)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q", part)
		}
		segments = append(segments, strings.TrimSpace(segment))
	}
	return segments, nil
}
