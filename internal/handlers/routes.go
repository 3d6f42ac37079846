package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	index := IndexHandler{}
	parse := ParseHandler{Relay: deps.Relay}
	playlists := PlaylistHandler{Relay: deps.Relay}
	videos := VideoHandler{Relay: deps.Relay}

	mux.HandleFunc("GET /{$}", index.Handle)
	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("GET /p", parse.Handle)
	mux.HandleFunc("GET /c/{categoryID}", playlists.Handle)
	mux.HandleFunc("GET /v/{postID}", videos.Handle)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Relay RelayService
}
