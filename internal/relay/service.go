// Package relay glues the upstream client, the resolution cache and the
// streaming proxy into the surface the HTTP handlers consume.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anime1local/server/internal/logging"
	"github.com/anime1local/server/internal/models"
	"github.com/anime1local/server/internal/playlist"
)

// Upstream captures everything the relay needs from the upstream client.
type Upstream interface {
	FetchPostsOrCategory(ctx context.Context, url string) (*models.Post, *models.Category, error)
	FetchCategory(ctx context.Context, categoryID string) (models.Category, error)
	ResolveByPostID(ctx context.Context, postID string) (models.ResolvedVideo, error)
	OpenVideo(ctx context.Context, video models.ResolvedVideo, rangeHeader, ifRangeHeader string) (*http.Response, error)
	Preheat(ctx context.Context) error
	Reset()
	Close()
}

// Service is the explicitly owned relay instance handed to the router at
// startup. Lifecycle: NewService, optional Preheat, Reset on a wedged
// session, Close at shutdown.
type Service struct {
	upstream Upstream
	cache    *ResolutionCache
	logger   *slog.Logger
}

// NewService wires a relay service around the given upstream client.
func NewService(up Upstream, cacheLimit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		upstream: up,
		cache:    NewResolutionCache(up, cacheLimit),
		logger:   logger,
	}
}

// Resolve classifies an upstream URL and describes the relay endpoints that
// serve its content.
func (s *Service) Resolve(ctx context.Context, baseURI, rawURL string) (models.ParseResult, error) {
	ctx, span := logging.StartSpan(ctx, "relay.resolve")
	defer span.End()

	post, category, err := s.upstream.FetchPostsOrCategory(ctx, rawURL)
	if err != nil {
		return models.ParseResult{}, err
	}
	baseURI = strings.TrimRight(baseURI, "/")

	if post != nil {
		return models.ParseResult{
			Type:     "single",
			ID:       post.ID,
			Title:    post.Title,
			Category: post.CategoryID,
			URL:      fmt.Sprintf("%s/v/%s", baseURI, post.ID),
		}, nil
	}

	playlists := make(map[string]string, len(models.PlaylistFormats()))
	for _, format := range models.PlaylistFormats() {
		playlists[string(format)] = fmt.Sprintf("%s/c/%s?playlist=%s", baseURI, category.ID, format)
	}
	videos := make([]models.ParseResultVideo, 0, len(category.Posts))
	for _, p := range category.Posts {
		videos = append(videos, models.ParseResultVideo{
			ID:    p.ID,
			Title: p.Title,
			URL:   fmt.Sprintf("%s/v/%s", baseURI, p.ID),
		})
	}
	return models.ParseResult{
		Type:      "category",
		ID:        category.ID,
		Title:     category.Title,
		URL:       fmt.Sprintf("%s/c/%s", baseURI, category.ID),
		Playlists: playlists,
		Videos:    videos,
	}, nil
}

// GetPlaylist fetches a category and renders it in the requested format. An
// empty format name selects m3u8.
func (s *Service) GetPlaylist(ctx context.Context, baseURI, categoryID, formatName string) (models.PlaylistInfo, error) {
	ctx, span := logging.StartSpan(ctx, "relay.playlist")
	defer span.End()

	format, err := playlist.ParseFormat(formatName)
	if err != nil {
		return models.PlaylistInfo{}, err
	}
	category, err := s.upstream.FetchCategory(ctx, categoryID)
	if err != nil {
		return models.PlaylistInfo{}, err
	}
	return playlist.Build(format, baseURI, category)
}

// OpenVideo resolves a post through the cache and opens the proxied stream.
func (s *Service) OpenVideo(ctx context.Context, postID, rangeHeader, ifRangeHeader string) (*Stream, error) {
	ctx, span := logging.StartSpan(ctx, "relay.video")
	defer span.End()

	video, err := s.cache.GetOrResolve(ctx, postID)
	if err != nil {
		return nil, err
	}
	return openStream(ctx, s.upstream, video, rangeHeader, ifRangeHeader)
}

// Preheat warms the upstream session. Best-effort; startup proceeds on error.
func (s *Service) Preheat(ctx context.Context) error {
	return s.upstream.Preheat(ctx)
}

// Reset drops the upstream session so the next call starts a fresh one.
func (s *Service) Reset() {
	s.upstream.Reset()
}

// Close releases upstream resources.
func (s *Service) Close() {
	s.upstream.Close()
}
