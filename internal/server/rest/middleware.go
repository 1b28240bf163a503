package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/auth"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/ratelimit"
)

type ctxKey string

const (
	claimsKey ctxKey = "claims"
	tokenKey  ctxKey = "token"
)

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// returned message is empty on success.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" {
		return "", msgTokenMissing
	}
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", msgTokenFormat
	}
	token := strings.TrimPrefix(header, common.BearerPrefix)
	if token == "" {
		return "", "Access token is missing. Please provide a valid token"
	}
	return token, ""
}

// requestLogger logs one line per request once it has been served.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// databaseGate makes sure the shared connection is up before any handler
// runs.
func (h *Handler) databaseGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.db.Ensure(r.Context()); err != nil {
			h.logger.Error(r.Context(), "database unavailable", "error", err)
			writeFailure(w, http.StatusServiceUnavailable, msgDatabaseUnhealthy)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate validates the bearer token and stores its claims in the
// request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, msg := bearerToken(r)
		if msg != "" {
			writeFailure(w, http.StatusUnauthorized, msg)
			return
		}

		claims, err := h.tokens.Validate(r.Context(), token)
		if err != nil {
			status, message := statusFor(err)
			if status == http.StatusInternalServerError {
				h.logger.Error(r.Context(), "token verification failed", "error", err)
				message = "Internal server error during token verification"
			} else if status != http.StatusUnauthorized {
				status, message = http.StatusUnauthorized, msgTokenFailed
			}
			writeFailure(w, status, message)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit counts requests per client address. Store failures let the
// request through.
func (h *Handler) rateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			d, err := h.limiter.Allow(r.Context(), scope+":"+clientIP(r))
			if err != nil {
				h.logger.Warn(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			setRateHeaders(w, d)
			if !d.Allowed {
				h.writeError(w, r, &common.RateLimitError{RetryAfter: d.RetryAfter})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var errNoClaims = errors.New("no claims in context")
