package app

import (
	"log/slog"

	"github.com/anime1local/server/internal/config"
	"github.com/anime1local/server/internal/handlers"
	"github.com/anime1local/server/internal/relay"
	"github.com/anime1local/server/internal/upstream"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The relay service is returned separately because the app owns its
// lifecycle.
func buildDependencies(cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *relay.Service, error) {
	client, err := upstream.NewClient(upstream.Options{
		Timeout: cfg.UpstreamTimeout,
		Logger:  logger,
	})
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	service := relay.NewService(client, cfg.CacheLimit, logger)

	return handlers.Dependencies{Relay: service}, service, nil
}
