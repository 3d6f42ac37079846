package handlers

import (
	"net/http"

	"github.com/anime1local/server/internal/logging"
)

// ParseHandler resolves arbitrary upstream URLs into relay endpoints.
type ParseHandler struct {
	Relay RelayService
}

// Handle implements GET /p?url=<upstream url>.
func (h ParseHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	url := r.URL.Query().Get("url")
	if url == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "missing query 'url'"})
		return
	}

	result, err := h.Relay.Resolve(ctx, baseURI(r), url)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	logger.Info("parsed upstream url", "type", result.Type, "id", result.ID)
	respondJSON(ctx, w, http.StatusOK, result)
}
