// Package dispatch turns route handlers into http.Handlers whose failures,
// returned or panicked, always reach the client as an envelope.
package dispatch

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"travelbook/internal/apperr"
	"travelbook/internal/envelope"
)

// HandlerFunc is the shape of every API route. A handler never writes to
// the ResponseWriter itself.
type HandlerFunc func(r *http.Request) (envelope.Response, error)

type Dispatcher struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Wrap(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := d.run(h, r)
		if err != nil {
			resp = d.failure(r, err)
		}
		d.write(w, r, resp)
	})
}

// WriteError is used by middleware that rejects a request before any
// route handler runs.
func (d *Dispatcher) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	d.write(w, r, d.failure(r, err))
}

func (d *Dispatcher) write(w http.ResponseWriter, r *http.Request, resp envelope.Response) {
	if err := envelope.Write(w, resp); err != nil {
		d.logger.ErrorContext(r.Context(), "response encode failed", "path", r.URL.Path, "error", err)
	}
}

func (d *Dispatcher) run(h HandlerFunc, r *http.Request) (resp envelope.Response, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		d.logger.ErrorContext(r.Context(), "handler panic", "path", r.URL.Path, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
		if cause, ok := rec.(error); ok {
			err = fmt.Errorf("panic: %w", cause)
			return
		}
		err = fmt.Errorf("panic: %v", rec)
	}()
	return h(r)
}

func (d *Dispatcher) failure(r *http.Request, err error) envelope.Response {
	tagged := apperr.From(err)
	status := apperr.StatusOf(err)
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"kind", string(tagged.Kind),
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		d.logger.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		d.logger.WarnContext(r.Context(), "request rejected", attrs...)
	}
	return envelope.Fail(status, apperr.MessageOf(err), string(tagged.Kind))
}
