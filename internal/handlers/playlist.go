package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/anime1local/server/internal/logging"
)

// PlaylistHandler serves a category rendered as a playlist document.
type PlaylistHandler struct {
	Relay RelayService
}

// Handle implements GET /c/{categoryID}?playlist=<format>. Without an explicit
// format the default m3u8 is served inline; an explicit format is offered as a
// download with a filename derived from the category title.
func (h PlaylistHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	categoryID := r.PathValue("categoryID")
	format := r.URL.Query().Get("playlist")

	info, err := h.Relay.GetPlaylist(ctx, baseURI(r), categoryID, format)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", info.ContentType)
	if format != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", url.PathEscape(info.FileName)))
	}
	if _, err := w.Write([]byte(info.Content)); err != nil {
		logger.Debug("write playlist response", "error", err)
		return
	}

	logger.Info("served playlist", "category", categoryID, "format", info.Format)
}
