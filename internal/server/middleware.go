package server

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenParser validates a bearer token and returns the user id it carries.
type TokenParser interface {
	ParseAccessToken(tokenString string) (string, error)
}

// Middleware carries the cross-cutting HTTP concerns.
type Middleware struct {
	tokens         TokenParser
	allowedOrigins []string
	logger         *zap.Logger
	rateLimiters   sync.Map
}

func NewMiddleware(tokens TokenParser, allowedOrigins []string, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{tokens: tokens, allowedOrigins: allowedOrigins, logger: logger}
}

// Auth requires a valid bearer token and stores the user id on the context.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.parseBearer(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func (m *Middleware) parseBearer(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization format")
	}
	return m.tokens.ParseAccessToken(parts[1])
}

func (m *Middleware) CORS(next http.Handler) http.Handler {
	allowed := m.allowedOrigins
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(origin, allowed) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(allowed) == 1 && allowed[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true // non-browser clients
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// simple token bucket per IP; one limiter is shared by every concurrent
// request from that IP, so all state is guarded by its mutex
type limiter struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// allow refills the bucket if the period has elapsed, then takes one token.
func (l *limiter) allow(now time.Time, maxTokens int, refillPeriod time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastRefill) > refillPeriod {
		l.tokens = maxTokens
		l.lastRefill = now
	}
	if l.tokens <= 0 {
		return false
	}
	l.tokens--
	return true
}

func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	const (
		maxTokens    = 60
		refillPeriod = time.Minute
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r.RemoteAddr)

		val, _ := m.rateLimiters.LoadOrStore(ip, &limiter{tokens: maxTokens, lastRefill: time.Now()})
		lim := val.(*limiter)

		if !lim.allow(time.Now(), maxTokens, refillPeriod) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from a RemoteAddr, handling bracketed IPv6.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// Log records one line per request at debug level.
func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		m.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
