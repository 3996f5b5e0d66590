// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/pulsefit/pulsefit/internal/auth"
)

// contextKey is a private type for request context values.
type contextKey int

const claimsKey contextKey = iota

// ClaimsFromContext returns the verified token claims stored by the
// auth middleware.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireVerifiedToken rejects requests without a valid token minted
// after second-factor verification. A first-factor token is not enough
// for protected resources.
func (s *Server) requireVerifiedToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error: "missing bearer token",
				Code:  auth.CodeTokenInvalid,
			})
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !claims.Verified {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error: "second-factor verification required",
				Code:  auth.CodeTokenInvalid,
			})
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request counts and latency per route.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		s.metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).
			Inc()
		s.metrics.HTTPRequestDuration.
			WithLabelValues(route).
			Observe(time.Since(start).Seconds())
	})
}
