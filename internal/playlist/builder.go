// Package playlist renders a resolved category into downloadable playlist
// documents. Builders are pure functions: identical input yields identical
// bytes.
package playlist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/anime1local/server/internal/models"
)

// ErrUnsupportedFormat indicates an unrecognized playlist format name.
var ErrUnsupportedFormat = errors.New("unsupported playlist format")

// ParseFormat maps a user-supplied format name onto a known format. The empty
// string selects the m3u8 default.
func ParseFormat(name string) (models.PlaylistFormat, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return models.PlaylistM3U8, nil
	}
	for _, format := range models.PlaylistFormats() {
		if trimmed == string(format) {
			return format, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Build renders the category in the requested format.
func Build(format models.PlaylistFormat, baseURI string, category models.Category) (models.PlaylistInfo, error) {
	baseURI = strings.TrimRight(baseURI, "/")

	switch format {
	case models.PlaylistM3U8:
		return models.PlaylistInfo{
			Format:      format,
			Content:     buildM3U8(baseURI, category),
			ContentType: "application/x-mpegURL",
			FileName:    category.Title + ".m3u8",
		}, nil
	case models.PlaylistDPL:
		return models.PlaylistInfo{
			Format:      format,
			Content:     buildDPL(baseURI, category),
			ContentType: "text/plain",
			FileName:    category.Title + ".dpl",
		}, nil
	case models.PlaylistDPLExt:
		return models.PlaylistInfo{
			Format:      format,
			Content:     buildDPLExt(baseURI, category),
			ContentType: "text/plain",
			FileName:    category.Title + ".dpl",
		}, nil
	case models.PlaylistXSPF, models.PlaylistXSPFExt:
		content, err := buildXSPF(format, baseURI, category)
		if err != nil {
			return models.PlaylistInfo{}, err
		}
		return models.PlaylistInfo{
			Format:      format,
			Content:     content,
			ContentType: "application/xspf+xml",
			FileName:    category.Title + ".xspf",
		}, nil
	default:
		return models.PlaylistInfo{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func buildM3U8(baseURI string, category models.Category) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, post := range category.Posts {
		fmt.Fprintf(&b, "#EXTINF:-1,%s\n", post.Title)
		fmt.Fprintf(&b, "%s/v/%s\n", baseURI, post.ID)
	}
	return b.String()
}

func buildDPL(baseURI string, category models.Category) string {
	var b strings.Builder
	b.WriteString("DAUMPLAYLIST\n")
	b.WriteString("topindex=0\n")
	b.WriteString("saveplaypos=0\n")
	for i, post := range category.Posts {
		fmt.Fprintf(&b, "%d*title*%s\n", i+1, post.Title)
		fmt.Fprintf(&b, "%d*file*%s/v/%s\n", i+1, baseURI, post.ID)
	}
	return b.String()
}

func buildDPLExt(baseURI string, category models.Category) string {
	var b strings.Builder
	b.WriteString("DAUMPLAYLIST\n")
	b.WriteString("topindex=0\n")
	b.WriteString("saveplaypos=0\n")
	fmt.Fprintf(&b, "extplaylist=%s/c/%s?playlist=%s\n", baseURI, category.ID, models.PlaylistM3U8)
	return b.String()
}

type xspfTrack struct {
	Location string `xml:"location"`
	Title    string `xml:"title"`
}

type xspfPlaylist struct {
	XMLName xml.Name    `xml:"playlist"`
	Xmlns   string      `xml:"xmlns,attr"`
	Version string      `xml:"version,attr"`
	Title   string      `xml:"title"`
	Tracks  []xspfTrack `xml:"trackList>track"`
}

func buildXSPF(format models.PlaylistFormat, baseURI string, category models.Category) (string, error) {
	doc := xspfPlaylist{
		Xmlns:   "http://xspf.org/ns/0/",
		Version: "1",
		Title:   category.Title,
	}
	if format == models.PlaylistXSPFExt {
		doc.Tracks = []xspfTrack{{
			Location: fmt.Sprintf("%s/c/%s", baseURI, category.ID),
			Title:    category.Title,
		}}
	} else {
		doc.Tracks = make([]xspfTrack, 0, len(category.Posts))
		for _, post := range category.Posts {
			doc.Tracks = append(doc.Tracks, xspfTrack{
				Location: fmt.Sprintf("%s/v/%s", baseURI, post.ID),
				Title:    post.Title,
			})
		}
	}

	encoded, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render xspf: %w", err)
	}
	return xml.Header + string(encoded) + "\n", nil
}
