// Package httpx holds the HTTP plumbing shared by the forecaster service and
// forecastctl: a server with graceful shutdown, JSON replies, middleware and a
// TLS-aware client.
package httpx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	chronotls "github.com/HatiCode/chronocast/pkg/tls"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Server is an http.Server that shuts down gracefully.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds a server for addr. The write timeout leaves room for a
// cold model endpoint, which can take tens of seconds to answer.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// SetTLSConfig must be called before StartTLS.
func (s *Server) SetTLSConfig(config *tls.Config) {
	s.srv.TLSConfig = config
}

// Start serves plain HTTP and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.srv.Addr, "tls", false)
	return serveResult(s.srv.ListenAndServe())
}

// StartTLS serves HTTPS with the certificates from SetTLSConfig.
func (s *Server) StartTLS() error {
	if s.srv.TLSConfig == nil {
		return errors.New("httpx: StartTLS called without a TLS config")
	}
	s.logger.Info("listening", "addr", s.srv.Addr, "tls", true)
	return serveResult(s.srv.ListenAndServeTLS("", ""))
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("server failed: %w", err)
}

// Stop drains in-flight requests for at most timeout.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// ErrorResponse is the body of every error reply. Kind names the error
// category (validation, connection, endpoint, decode, data_shape, timeout)
// when the handler knows it.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// WriteError replies with err's message.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorKind(w, status, "", err.Error())
}

// WriteErrorMessage replies with a fixed message.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteErrorKind(w, status, "", message)
}

// WriteErrorKind replies with message tagged by kind.
func WriteErrorKind(w http.ResponseWriter, status int, kind, message string) {
	if err := WriteJSON(w, status, ErrorResponse{Error: message, Kind: kind}); err != nil {
		slog.Error("failed to write error response", "error", err, "status", status)
	}
}

// HealthHandler always answers 200 OK.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w)
	}
}

// HealthHandlerWithCheck answers 503 with the check's error, 200 OK otherwise.
// A nil check behaves like HealthHandler.
func HealthHandlerWithCheck(check func(ctx context.Context) error, timeout time.Duration) http.HandlerFunc {
	if check == nil {
		return HealthHandler()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := check(ctx); err != nil {
			WriteError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeOK(w)
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type requestIDKey struct{}

// RequestID returns the correlation id stored by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware propagates X-Request-ID, generating one when absent,
// and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// LoggingMiddleware logs one line per request. Server errors log at error
// level, client errors at warn, the rest at info.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id := RequestID(r.Context()); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// RecoveryMiddleware turns a handler panic into a 500 reply.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("handler panic",
						"panic", v,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", RequestID(r.Context()),
					)
					WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewClient returns a client with the given overall timeout. When tlsCfg is
// enabled its CA bundle and client certificate are used.
func NewClient(tlsCfg chronotls.Config, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 10
	transport.IdleConnTimeout = 30 * time.Second
	transport.TLSHandshakeTimeout = 5 * time.Second

	if tlsCfg.Enabled {
		cfg, err := chronotls.NewClientTLSConfig(tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("create TLS config: %w", err)
		}
		transport.TLSClientConfig = cfg
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
