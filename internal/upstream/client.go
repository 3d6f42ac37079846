// Package upstream talks to the anime1.me site: page fetching, HTML
// extraction and the two-step resolution of a post into a playable backing
// URL.
package upstream

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anime1local/server/internal/models"
)

const (
	defaultBaseURL = "https://anime1.me"
	defaultAPIURL  = "https://v.anime1.me/api"

	// Resolved URLs are invalidated slightly before the upstream-issued
	// expiry to avoid racing it at the resolution boundary.
	expireSafetyOffset = 5 * time.Second
)

// Options configures a Client. Zero values select the production upstream.
type Options struct {
	BaseURL string
	APIURL  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client issues the three upstream call families (page fetch, video
// resolution, video streaming) over a shared cookie-jar session. The session
// can be dropped and recreated with Reset to recover from a wedged upstream
// state; in-flight calls finish against the session they started on.
type Client struct {
	baseURL string
	apiURL  string
	host    string
	scheme  string
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	session *http.Client

	// Video streams bypass the jar and carry exactly the cookies minted at
	// resolution time, so cached resolutions stay playable across a Reset.
	streams *http.Client
}

// NewClient constructs a Client for the fixed upstream host.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	api, err := url.Parse(opts.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiURL:  opts.APIURL,
		host:    base.Hostname(),
		scheme:  api.Scheme,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		streams: &http.Client{},
	}
	c.session = newSession()
	return c, nil
}

func newSession() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

// ValidPostsURL reports whether the URL belongs to the upstream host.
func (c *Client) ValidPostsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Hostname(), c.host)
}

// Reset drops the current cookie-jar session and starts a fresh one. Calls
// already in flight hold the previous session and complete normally.
func (c *Client) Reset() {
	c.mu.Lock()
	old := c.session
	c.session = newSession()
	c.mu.Unlock()
	old.CloseIdleConnections()
	c.logger.Info("upstream session reset")
}

// Preheat warms the connection and session cookies with a throwaway page
// fetch. Failures are returned but are safe to ignore at startup.
func (c *Client) Preheat(ctx context.Context) error {
	resp, err := c.get(ctx, c.baseURL+"/", pageHeaders(c.baseURL))
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	session.CloseIdleConnections()
	c.streams.CloseIdleConnections()
}

// FetchPostsOrCategory fetches an arbitrary upstream URL and extracts whatever
// it holds. Exactly one of the returned post/category is non-nil on success.
func (c *Client) FetchPostsOrCategory(ctx context.Context, rawURL string) (*models.Post, *models.Category, error) {
	if !c.ValidPostsURL(rawURL) {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	doc, err := c.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}

	switch classifyPage(doc) {
	case pageCategory:
		category, err := extractCategory(doc)
		if err != nil {
			return nil, nil, err
		}
		return nil, &category, nil
	case pageSinglePost:
		post, err := extractSinglePost(doc)
		if err != nil {
			return nil, nil, err
		}
		return &post, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownURLType, rawURL)
	}
}

// FetchCategory fetches a category by id.
func (c *Client) FetchCategory(ctx context.Context, categoryID string) (models.Category, error) {
	target := c.baseURL + "/?" + url.Values{"cat": {categoryID}}.Encode()
	doc, err := c.fetchDocument(ctx, target)
	if err != nil {
		if isNotFound(err) {
			return models.Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
		}
		return models.Category{}, err
	}
	if classifyPage(doc) != pageCategory {
		return models.Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	return extractCategory(doc)
}

// FetchPost fetches a single post by id.
func (c *Client) FetchPost(ctx context.Context, postID string) (models.Post, error) {
	doc, err := c.fetchDocument(ctx, c.baseURL+"/"+url.PathEscape(postID))
	if err != nil {
		if isNotFound(err) {
			return models.Post{}, fmt.Errorf("%w: %s", ErrUnknownVideo, postID)
		}
		return models.Post{}, err
	}
	if classifyPage(doc) != pageSinglePost {
		return models.Post{}, fmt.Errorf("%w: %s", ErrUnknownVideo, postID)
	}
	return extractSinglePost(doc)
}

// ResolveVideo submits a post's opaque resolution token to the upstream API
// and returns the expiring backing URL it answers with.
func (c *Client) ResolveVideo(ctx context.Context, token string) (models.ResolvedVideo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"d": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.ResolvedVideo{}, fmt.Errorf("build resolve request: %w", err)
	}
	req.Header = apiHeaders(c.baseURL)

	resp, err := c.do(req)
	if err != nil {
		return models.ResolvedVideo{}, err
	}
	defer resp.Body.Close()

	body, err := decodedBody(resp)
	if err != nil {
		return models.ResolvedVideo{}, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	defer body.Close()

	var payload struct {
		Sources []struct {
			Src  string `json:"src"`
			Type string `json:"type"`
		} `json:"s"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return models.ResolvedVideo{}, fmt.Errorf("%w: decode resolution response: %v", ErrMalformedPage, err)
	}
	if len(payload.Sources) == 0 {
		return models.ResolvedVideo{}, fmt.Errorf("%w: empty resolution response", ErrMalformedPage)
	}

	expiresAt, err := expiryFromCookies(resp.Cookies())
	if err != nil {
		return models.ResolvedVideo{}, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	// The API hands back a scheme-relative src; reuse its own scheme.
	return models.ResolvedVideo{
		URL:       c.scheme + ":" + payload.Sources[0].Src,
		MediaType: payload.Sources[0].Type,
		Cookies:   resp.Cookies(),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolvePost resolves an already-fetched post.
func (c *Client) ResolvePost(ctx context.Context, post models.Post) (models.ResolvedVideo, error) {
	return c.ResolveVideo(ctx, post.ResolutionToken)
}

// ResolveByPostID performs the full two-step resolution for a post id.
func (c *Client) ResolveByPostID(ctx context.Context, postID string) (models.ResolvedVideo, error) {
	post, err := c.FetchPost(ctx, postID)
	if err != nil {
		return models.ResolvedVideo{}, err
	}
	return c.ResolvePost(ctx, post)
}

// OpenVideo opens a streaming GET against the backing URL, forwarding the
// inbound range headers verbatim. The caller owns the response body and must
// close it exactly once; its lifetime is bound to ctx, so a disconnecting
// downstream client tears the upstream connection down with it.
func (c *Client) OpenVideo(ctx context.Context, video models.ResolvedVideo, rangeHeader, ifRangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, video.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build video request: %w", err)
	}
	req.Header = videoHeaders(c.baseURL, rangeHeader, ifRangeHeader)
	for _, cookie := range video.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.streams.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Status: status, Message: http.StatusText(status)}
	}
	return resp, nil
}

// fetchDocument GETs an upstream page and parses it into a document.
func (c *Client) fetchDocument(ctx context.Context, target string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, target, pageHeaders(c.baseURL))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodedBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrMalformedPage, err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, target string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = headers
	return c.do(req)
}

// do runs a request on the current session and folds transport failures and
// non-success statuses into the error taxonomy.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	resp, err := session.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Status: status, Message: http.StatusText(status)}
	}
	return resp, nil
}

// decodedBody unwraps the response body according to Content-Encoding. The
// transport does not do this for us because the browser header set pins
// Accept-Encoding explicitly.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

// expiryFromCookies reads the upstream's "e" cookie, an epoch-seconds expiry
// for the resolved URL, and applies the safety offset.
func expiryFromCookies(cookies []*http.Cookie) (time.Time, error) {
	for _, cookie := range cookies {
		if cookie.Name != "e" {
			continue
		}
		epoch, err := strconv.ParseInt(cookie.Value, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("expiry cookie %q: %v", cookie.Value, err)
		}
		return time.Unix(epoch, 0).Add(-expireSafetyOffset), nil
	}
	return time.Time{}, errors.New("resolution response has no expiry cookie")
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound
}
