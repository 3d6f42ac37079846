package upstream

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anime1local/server/internal/models"
)

// pageKind classifies a fetched upstream page.
type pageKind int

const (
	pageUnknown pageKind = iota
	pageCategory
	pageSinglePost
)

var (
	categoryIDPattern = regexp.MustCompile(`'categoryID':\s'(.*?)'`)
	postOrderPattern  = regexp.MustCompile(`^.*?\[(\d+)]`)
)

// Link labels the upstream uses inside each post block. The lookup is an exact
// text match, not a structural one.
const (
	allEpisodesLinkText = "全集連結"
	nextEpisodeLinkText = "下一集"
)

// classifyPage reads the marker classes off the document body. Pages without a
// recognizable marker are not an error, just not content pages.
func classifyPage(doc *goquery.Document) pageKind {
	classes := strings.Fields(doc.Find("body").First().AttrOr("class", ""))
	for _, c := range classes {
		switch c {
		case "category":
			return pageCategory
		case "single-post":
			return pageSinglePost
		}
	}
	return pageUnknown
}

// extractPosts pulls every post block out of the document and applies the
// upstream's ordering convention: when every post carries a leading "[N]"
// numeric marker the result is sorted ascending by it, otherwise the document
// order is reversed (the upstream lists newest first on unnumbered series).
func extractPosts(doc *goquery.Document) ([]models.Post, error) {
	var (
		posts      []models.Post
		allOrdered = true
		blockErr   error
	)

	doc.Find("article[id]").EachWithBreak(func(_ int, article *goquery.Selection) bool {
		post, err := extractPost(article)
		if err != nil {
			blockErr = err
			return false
		}
		if post.Order == nil {
			allOrdered = false
		}
		posts = append(posts, post)
		return true
	})
	if blockErr != nil {
		return nil, blockErr
	}

	if allOrdered {
		sort.SliceStable(posts, func(i, j int) bool { return *posts[i].Order < *posts[j].Order })
	} else {
		for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
			posts[i], posts[j] = posts[j], posts[i]
		}
	}
	return posts, nil
}

// extractPost reads a single article block. A missing required sub-element
// fails the call; the caller aborts the whole page rather than serve a
// category with silently dropped episodes.
func extractPost(article *goquery.Selection) (models.Post, error) {
	rawID := article.AttrOr("id", "")
	idParts := strings.SplitN(rawID, "-", 2)
	if len(idParts) != 2 || idParts[1] == "" {
		return models.Post{}, fmt.Errorf("%w: article id %q", ErrMalformedPage, rawID)
	}

	header := article.Find("header").First()
	if header.Length() == 0 {
		return models.Post{}, fmt.Errorf("%w: post %s has no header", ErrMalformedPage, idParts[1])
	}
	titleNode := header.Find("h2").First()
	if titleNode.Length() == 0 {
		return models.Post{}, fmt.Errorf("%w: post %s has no title", ErrMalformedPage, idParts[1])
	}
	title := titleNode.Text()

	datetime, ok := header.Find("time").First().Attr("datetime")
	if !ok {
		return models.Post{}, fmt.Errorf("%w: post %s has no timestamp", ErrMalformedPage, idParts[1])
	}

	content := article.Find("div.entry-content").First()
	if content.Length() == 0 {
		return models.Post{}, fmt.Errorf("%w: post %s has no content block", ErrMalformedPage, idParts[1])
	}
	paragraph := content.Find("p").First()

	video := content.Find("video[id]").First()
	videoID, ok := video.Attr("data-vid")
	if !ok {
		return models.Post{}, fmt.Errorf("%w: post %s has no video descriptor", ErrMalformedPage, idParts[1])
	}
	thumbServer, ok := video.Attr("data-tserver")
	if !ok {
		return models.Post{}, fmt.Errorf("%w: post %s has no thumbnail server", ErrMalformedPage, idParts[1])
	}
	rawToken, ok := video.Attr("data-apireq")
	if !ok {
		return models.Post{}, fmt.Errorf("%w: post %s has no resolution token", ErrMalformedPage, idParts[1])
	}
	token, err := url.QueryUnescape(rawToken)
	if err != nil {
		return models.Post{}, fmt.Errorf("%w: post %s resolution token: %v", ErrMalformedPage, idParts[1], err)
	}

	categoryID, err := linkQueryValue(paragraph, allEpisodesLinkText)
	if err != nil {
		return models.Post{}, fmt.Errorf("%w: post %s has no category link", ErrMalformedPage, idParts[1])
	}
	// The "next episode" link only exists on all but the latest post.
	nextPostID, _ := linkQueryValue(paragraph, nextEpisodeLinkText)

	var order *int
	if m := postOrderPattern.FindStringSubmatch(title); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			order = &n
		}
	}

	return models.Post{
		ID:               idParts[1],
		Title:            title,
		Order:            order,
		Datetime:         datetime,
		CategoryID:       categoryID,
		VideoID:          videoID,
		ThumbnailsServer: thumbServer,
		ResolutionToken:  token,
		NextPostID:       nextPostID,
	}, nil
}

// linkQueryValue finds an anchor by its exact text and returns the value after
// "=" in its href, the upstream's way of carrying ids in query strings.
func linkQueryValue(scope *goquery.Selection, text string) (string, error) {
	var value string
	found := false
	scope.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != text {
			return true
		}
		href := a.AttrOr("href", "")
		if idx := strings.Index(href, "="); idx >= 0 {
			value = href[idx+1:]
			found = true
		}
		return false
	})
	if !found {
		return "", fmt.Errorf("link %q not found", text)
	}
	return value, nil
}

// extractCategory reads category metadata plus the full post list. The
// category id lives in an inline script payload; both it and the page title
// are mandatory for a category page.
func extractCategory(doc *goquery.Document) (models.Category, error) {
	script := doc.Find("script").First().Text()
	m := categoryIDPattern.FindStringSubmatch(script)
	if m == nil {
		return models.Category{}, fmt.Errorf("%w: no category id in page script", ErrMalformedPage)
	}

	title := doc.Find("header.page-header h1.page-title").First().Text()
	if title == "" {
		return models.Category{}, fmt.Errorf("%w: no category title", ErrMalformedPage)
	}

	posts, err := extractPosts(doc)
	if err != nil {
		return models.Category{}, err
	}

	return models.Category{ID: m[1], Title: title, Posts: posts}, nil
}

// extractSinglePost returns the first (and normally only) post on a
// single-post page.
func extractSinglePost(doc *goquery.Document) (models.Post, error) {
	posts, err := extractPosts(doc)
	if err != nil {
		return models.Post{}, err
	}
	if len(posts) == 0 {
		return models.Post{}, fmt.Errorf("%w: single-post page without a post block", ErrMalformedPage)
	}
	return posts[0], nil
}
