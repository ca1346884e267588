package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/sentinel/internal/rest/render"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDCtxKey struct{}

// RequestIDFrom returns the request ID stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID assigns every request an ID, reusing a well-formed incoming one.
func RequestID(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		id := req.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(req.Context(), requestIDCtxKey{}, id)

		return next(w, req.WithContext(ctx))
	}
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Logger logs each request and turns panics into 500 responses.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates the request logging middleware.
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

// Middleware implements bunrouter.MiddlewareFunc.
func (l *Logger) Middleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) (err error) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("Panic in request handler",
					zap.Any("panic", r),
					zap.String("requestID", RequestIDFrom(req.Context())),
					zap.String("path", req.URL.Path),
					zap.Stack("stack"))

				if rec.status == 0 {
					_ = render.Error(rec, http.StatusInternalServerError, "Internal server error")
				}
				err = nil
			}

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			l.logger.Info("Handled request",
				zap.String("requestID", RequestIDFrom(req.Context())),
				zap.String("method", req.Method),
				zap.String("route", req.Route()),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)))
		}()

		return next(rec, req)
	}
}

// Errors converts handler errors into JSON error responses.
func (l *Logger) Errors(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		err := next(w, req)
		if err == nil {
			return nil
		}

		var httpErr *render.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.Status >= http.StatusInternalServerError {
				l.logger.Error("Request failed",
					zap.String("requestID", RequestIDFrom(req.Context())),
					zap.String("path", req.URL.Path),
					zap.Error(err))
			}
			return render.Error(w, httpErr.Status, httpErr.Detail)
		}

		l.logger.Error("Unhandled request error",
			zap.String("requestID", RequestIDFrom(req.Context())),
			zap.String("path", req.URL.Path),
			zap.Error(err))

		return render.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
