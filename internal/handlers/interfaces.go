package handlers

import (
	"context"

	"github.com/anime1local/server/internal/models"
	"github.com/anime1local/server/internal/relay"
)

// RelayService captures the relay operations required by the HTTP handlers.
type RelayService interface {
	Resolve(ctx context.Context, baseURI, url string) (models.ParseResult, error)
	GetPlaylist(ctx context.Context, baseURI, categoryID, format string) (models.PlaylistInfo, error)
	OpenVideo(ctx context.Context, postID, rangeHeader, ifRangeHeader string) (*relay.Stream, error)
}
