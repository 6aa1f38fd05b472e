package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/sydlexius/artistlink/internal/api/middleware"
	"github.com/sydlexius/artistlink/internal/match"
	"github.com/sydlexius/artistlink/internal/profile"
	"github.com/sydlexius/artistlink/internal/provider"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

type errorBody struct {
	Error     string                `json:"error"`
	Kind      string                `json:"kind,omitempty"`
	Platform  provider.ProviderName `json:"platform,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, req *http.Request, status int, message string) {
	writeJSON(w, status, errorBody{Error: message, RequestID: middleware.RequestIDFromContext(req.Context())})
}

// decodeBody reads a bounded JSON body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps the engine's typed errors onto HTTP statuses.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	var (
		validation  *provider.ErrValidation
		auth        *provider.ErrAuthFailed
		notFound    *provider.ErrNotFound
		rateLimited *provider.ErrRateLimited
		unavailable *provider.ErrProviderUnavailable
		modelOutput *match.ErrModelOutput
	)
	body := errorBody{Error: err.Error(), RequestID: middleware.RequestIDFromContext(req.Context())}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &validation):
		status, body.Kind = http.StatusBadRequest, "validation"
	case errors.As(err, &rateLimited):
		status, body.Kind, body.Platform = http.StatusTooManyRequests, "rate_limited", rateLimited.Provider
		if rateLimited.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateLimited.RetryAfter.Seconds()))))
		}
	case errors.As(err, &notFound):
		status, body.Kind, body.Platform = http.StatusNotFound, "not_found", notFound.Provider
	case errors.Is(err, profile.ErrNotFound):
		status, body.Kind = http.StatusNotFound, "not_found"
	case errors.As(err, &auth):
		status, body.Kind, body.Platform = http.StatusBadGateway, "auth_failed", auth.Provider
	case errors.As(err, &unavailable):
		status, body.Kind, body.Platform = http.StatusBadGateway, "upstream", unavailable.Provider
	case errors.As(err, &modelOutput):
		status, body.Kind = http.StatusBadGateway, "model_output"
	case errors.Is(err, context.DeadlineExceeded):
		status, body.Kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this.
		status = 499
	}

	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed",
			slog.String("request_id", body.RequestID),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()))
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	writeJSON(w, status, body)
}
