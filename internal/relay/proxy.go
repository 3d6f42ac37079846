package relay

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/anime1local/server/internal/models"
)

// VideoOpener opens a passthrough connection to a resolved backing URL.
type VideoOpener interface {
	OpenVideo(ctx context.Context, video models.ResolvedVideo, rangeHeader, ifRangeHeader string) (*http.Response, error)
}

// relayedHeaders is the allow-list of backing-server response headers exposed
// to the caller. Everything else, including identifying server headers, is
// dropped.
var relayedHeaders = []string{"Content-Length", "Content-Range", "Etag", "Last-Modified"}

// Stream is a single-pass handle on a proxied video response. Body must be
// closed exactly once; it is not restartable.
type Stream struct {
	Status    int
	MediaType string
	Header    http.Header
	Body      io.ReadCloser
}

// openStream issues the backing request and wraps the response for relaying.
// Range and If-Range go upstream verbatim when present and are omitted
// entirely when absent.
func openStream(ctx context.Context, opener VideoOpener, video models.ResolvedVideo, rangeHeader, ifRangeHeader string) (*Stream, error) {
	resp, err := opener.OpenVideo(ctx, video, rangeHeader, ifRangeHeader)
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(relayedHeaders))
	for _, name := range relayedHeaders {
		if value := resp.Header.Get(name); value != "" {
			header.Set(name, value)
		}
	}

	return &Stream{
		Status:    resp.StatusCode,
		MediaType: resp.Header.Get("Content-Type"),
		Header:    header,
		Body:      &onceCloser{ReadCloser: resp.Body},
	}, nil
}

// onceCloser makes the underlying connection release idempotent so the
// deferred close in a handler and an error-path close cannot double-release.
type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadCloser.Close() })
	return c.err
}
