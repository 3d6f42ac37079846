package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anime1local/server/internal/models"
	"github.com/anime1local/server/internal/relay"
	"github.com/anime1local/server/internal/upstream"
)

type stubRelay struct {
	gotBaseURI string
	gotURL     string
	result     models.ParseResult
	resolveErr error

	gotCategory string
	gotFormat   string
	playlist    models.PlaylistInfo
	playlistErr error

	gotPostID  string
	gotRange   string
	gotIfRange string
	stream     *relay.Stream
	openErr    error
}

func (s *stubRelay) Resolve(ctx context.Context, baseURI, url string) (models.ParseResult, error) {
	s.gotBaseURI = baseURI
	s.gotURL = url
	if s.resolveErr != nil {
		return models.ParseResult{}, s.resolveErr
	}
	return s.result, nil
}

func (s *stubRelay) GetPlaylist(ctx context.Context, baseURI, categoryID, format string) (models.PlaylistInfo, error) {
	s.gotBaseURI = baseURI
	s.gotCategory = categoryID
	s.gotFormat = format
	if s.playlistErr != nil {
		return models.PlaylistInfo{}, s.playlistErr
	}
	return s.playlist, nil
}

func (s *stubRelay) OpenVideo(ctx context.Context, postID, rangeHeader, ifRangeHeader string) (*relay.Stream, error) {
	s.gotPostID = postID
	s.gotRange = rangeHeader
	s.gotIfRange = ifRangeHeader
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.stream, nil
}

func newTestMux(relay *stubRelay) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{Relay: relay})
	return mux
}

func TestParseHandlerMissingURL(t *testing.T) {
	mux := newTestMux(&stubRelay{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["error"] != "missing query 'url'" {
		t.Fatalf("unexpected error message %q", payload["error"])
	}
}

func TestParseHandlerSinglePost(t *testing.T) {
	stub := &stubRelay{result: models.ParseResult{
		Type:     "single",
		ID:       "713",
		Title:    "[1] Pilot",
		Category: "86",
		URL:      "http://relay.test/v/713",
	}}
	mux := newTestMux(stub)

	req := httptest.NewRequest(http.MethodGet, "/p?url=https%3A%2F%2Fanime1.me%2F713", nil)
	req.Host = "relay.test"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
	if stub.gotURL != "https://anime1.me/713" {
		t.Fatalf("url not forwarded: %q", stub.gotURL)
	}
	if stub.gotBaseURI != "http://relay.test" {
		t.Fatalf("unexpected base uri %q", stub.gotBaseURI)
	}

	var payload models.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Type != "single" || payload.URL != "http://relay.test/v/713" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestParseHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid url", upstream.ErrInvalidURL, http.StatusBadRequest},
		{"unknown url type", upstream.ErrUnknownURLType, http.StatusNotFound},
		{"upstream status", &upstream.StatusError{Status: http.StatusBadGateway, Message: "bad gateway"}, http.StatusBadGateway},
		{"unavailable", upstream.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{"malformed page", upstream.ErrMalformedPage, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestMux(&stubRelay{resolveErr: tc.err})

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p?url=https%3A%2F%2Fanime1.me%2Fx", nil))

			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, rec.Code)
			}
		})
	}
}
