package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/anime1local/server/internal/logging"
	"github.com/anime1local/server/internal/playlist"
	"github.com/anime1local/server/internal/upstream"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError maps the relay error taxonomy onto transport statuses.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	respondJSON(ctx, w, errorStatus(err), map[string]string{"error": err.Error()})
}

func errorStatus(err error) int {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, upstream.ErrInvalidURL),
		errors.Is(err, playlist.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, upstream.ErrUnknownURLType),
		errors.Is(err, upstream.ErrUnknownCategory),
		errors.Is(err, upstream.ErrUnknownVideo):
		return http.StatusNotFound
	case errors.As(err, &statusErr):
		return statusErr.Status
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, upstream.ErrMalformedPage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// baseURI reconstructs the origin the client used to reach the relay, so
// generated playlist and video links point back at us.
func baseURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
