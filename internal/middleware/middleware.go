package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/auth"
	"github.com/thehashrocket/kirk-analytics/internal/config"
)

// contextKey is a custom type for context keys.
type contextKey string

const (
	scopeContextKey contextKey = "scope"

	AuthHeaderName  = "X-API-Key"
	AuthQueryParam  = "api_key"
	RoleHeaderName  = "X-Kirk-Role"
	ActorHeaderName = "X-Kirk-Actor-ID"
)

// NewLogger creates a new zap logger based on configuration.
func NewLogger(level, format string) (*zap.Logger, error) {
	var cfg zap.Config

	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

// ScopeFromContext returns the resolved caller scope, if any.
func ScopeFromContext(ctx context.Context) (auth.Scope, bool) {
	s, ok := ctx.Value(scopeContextKey).(auth.Scope)
	return s, ok
}

// RecoveryMiddleware recovers from panics.
type RecoveryMiddleware struct {
	logger *zap.Logger
}

func NewRecoveryMiddleware(logger *zap.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

func (rm *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				rm.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("stack", string(debug.Stack())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs HTTP requests.
type LoggingMiddleware struct {
	logger *zap.Logger
}

type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (l *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Int("size", rw.size),
			zap.Duration("duration", duration),
			zap.String("remote_addr", r.RemoteAddr),
		}

		switch {
		case rw.status >= 500:
			l.logger.Error("request completed", fields...)
		case rw.status >= 400:
			l.logger.Warn("request completed", fields...)
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			l.logger.Debug("request completed", fields...)
		default:
			l.logger.Info("request completed", fields...)
		}
	})
}

// AuthMiddleware validates API key authentication and resolves the caller's
// scope from role headers. The scope lands in the request context; handlers
// fail closed when it is absent.
type AuthMiddleware struct {
	cfg    config.AuthConfig
	logger *zap.Logger
}

func NewAuthMiddleware(cfg config.AuthConfig, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, logger: logger}
}

func (a *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Enabled {
			apiKey := r.Header.Get(AuthHeaderName)
			if apiKey == "" {
				apiKey = r.URL.Query().Get(AuthQueryParam)
			}

			if apiKey == "" {
				a.unauthorized(w, "missing API key")
				return
			}

			if !a.validateKey(apiKey) {
				a.logger.Warn("invalid API key attempt",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				a.unauthorized(w, "invalid API key")
				return
			}
		}

		scope, ok := resolveScope(r)
		if !ok {
			a.logger.Warn("request without valid scope",
				zap.String("path", r.URL.Path),
				zap.String("role", r.Header.Get(RoleHeaderName)),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"missing or invalid role"}`))
			return
		}

		ctx := context.WithValue(r.Context(), scopeContextKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveScope maps the role headers set by the API gateway to a scope.
// Admin needs no actor ID; rep and client roles do.
func resolveScope(r *http.Request) (auth.Scope, bool) {
	role := r.Header.Get(RoleHeaderName)
	actor := r.Header.Get(ActorHeaderName)

	var scope auth.Scope
	switch auth.ScopeKind(role) {
	case auth.ScopeAdmin:
		scope = auth.Admin()
	case auth.ScopeAccountRep:
		scope = auth.AccountRep(actor)
	case auth.ScopeClient:
		scope = auth.Client(actor)
	default:
		return auth.Scope{}, false
	}
	return scope, scope.Valid()
}

func (a *AuthMiddleware) shouldSkip(path string) bool {
	for _, skip := range a.cfg.SkipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

func (a *AuthMiddleware) validateKey(key string) bool {
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.cfg.MasterKey)) == 1
}

func (a *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "ApiKey")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
