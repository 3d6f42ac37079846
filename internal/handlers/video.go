package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/anime1local/server/internal/logging"
)

// VideoHandler proxies the backing video stream for a post.
type VideoHandler struct {
	Relay RelayService
}

// Handle implements GET /v/{postID}. Range and If-Range are forwarded to the
// backing server and its status, content headers and body are relayed
// unbuffered.
func (h VideoHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	postID := r.PathValue("postID")

	stream, err := h.Relay.OpenVideo(ctx, postID, r.Header.Get("Range"), r.Header.Get("If-Range"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer stream.Body.Close()

	header := w.Header()
	for name, values := range stream.Header {
		header[name] = values
	}
	if stream.MediaType != "" {
		header.Set("Content-Type", stream.MediaType)
	}
	w.WriteHeader(stream.Status)

	// The response has started; a failed copy (usually the player seeking or
	// disconnecting) cannot become a second response.
	if _, err := io.Copy(w, stream.Body); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("video stream ended early", "post", postID, "error", err)
	}
}
