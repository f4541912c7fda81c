package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/globals"
	"mahlzeit/utils"
)

// Identity is what a verified token tells us about the caller.
type Identity struct {
	UserID      string
	DisplayName string
	TokenID     string
}

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

type Middleware struct {
	verifier Verifier
}

func New(v Verifier) *Middleware {
	return &Middleware{verifier: v}
}

// BearerToken reads the Authorization header, or the token query parameter
// for websocket upgrades where browsers cannot set headers.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func (m *Middleware) identify(r *http.Request) (*http.Request, bool) {
	raw := BearerToken(r)
	if raw == "" {
		return r, false
	}
	id, err := m.verifier.Verify(r.Context(), raw)
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
		return r, false
	}
	ctx := context.WithValue(r.Context(), globals.UserIDKey, id.UserID)
	ctx = context.WithValue(ctx, globals.UserNameKey, id.DisplayName)
	ctx = context.WithValue(ctx, globals.TokenIDKey, id.TokenID)
	return r.WithContext(ctx), true
}

// Authenticate rejects requests without a valid token.
func (m *Middleware) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r, ok := m.identify(r)
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Nicht angemeldet")
			return
		}
		next(w, r, ps)
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present.
func (m *Middleware) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r, _ = m.identify(r)
		next(w, r, ps)
	}
}

func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("panic recovered")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is needed by the websocket upgrader.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
