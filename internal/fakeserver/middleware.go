package fakeserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const traceIDHeader = "X-Trace-ID"

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.status = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (s *Server) withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = s.ids.Generate()
		}

		l := s.logger.GetChildLogger()
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("trace_id", traceID)
		})
		r = r.WithContext(l.WithContext(r.Context()))

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(lw, r)

		logger.FromRequest(r).Debug().
			Str("uri", r.RequestURI).
			Str("method", r.Method).
			Int("status", lw.status).
			Dur("duration", time.Since(start)).
			Int("size", lw.size).
			Send()
	})
}

// withHawk accepts requests signed with the id of the token this server
// issued. The MAC itself is not verified.
func (s *Server) withHawk(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Hawk ") || !strings.Contains(auth, `id="`+s.tokenID+`"`) {
			http.Error(w, "invalid hawk credentials", http.StatusUnauthorized)
			return
		}
		if chi.URLParam(r, "uid") != strconv.FormatInt(s.uid, 10) {
			http.Error(w, "unknown user", http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withStorageHeaders adds the timestamp and backoff headers of every
// storage response and serves injected failures.
func (s *Server) withStorageHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		now := s.currentTimestamp()
		backoff := s.backoffSecs
		var failure *injectedFailure
		if len(s.failures) > 0 {
			failure = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		w.Header().Set("X-Weave-Timestamp", now.String())
		if backoff > 0 {
			w.Header().Set("X-Weave-Backoff", strconv.Itoa(backoff))
		}
		if failure != nil {
			if failure.retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(failure.retryAfter))
			}
			http.Error(w, http.StatusText(failure.status), failure.status)
			return
		}
		next.ServeHTTP(w, r)
	})
}
