package handlers

import (
	"fmt"
	"net/http"
)

// IndexHandler serves a short usage hint at the root.
type IndexHandler struct{}

// Handle implements GET /.
func (IndexHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Use %s/p?url=<Url> to parse any valid video posts url", baseURI(r))
}
