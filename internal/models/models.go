package models

import (
	"net/http"
	"time"
)

// Post represents one playable episode entry on the upstream site.
type Post struct {
	ID               string
	Title            string
	Order            *int
	Datetime         string
	CategoryID       string
	VideoID          string
	ThumbnailsServer string
	ResolutionToken  string
	NextPostID       string
}

// Category is an ordered collection of posts belonging to one series.
type Category struct {
	ID    string
	Title string
	Posts []Post
}

// ResolvedVideo is the short-lived playable form of a post: the signed backing
// URL together with the session cookies that authorize it and the moment it
// stops being valid.
type ResolvedVideo struct {
	URL       string
	MediaType string
	Cookies   []*http.Cookie
	ExpiresAt time.Time
}

// Expired reports whether the backing URL can no longer be used at the given
// instant.
func (v ResolvedVideo) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// PlaylistFormat names one of the supported playlist renderings.
type PlaylistFormat string

const (
	PlaylistM3U8    PlaylistFormat = "m3u8"
	PlaylistDPL     PlaylistFormat = "dpl"
	PlaylistDPLExt  PlaylistFormat = "dpl_ext"
	PlaylistXSPF    PlaylistFormat = "xspf"
	PlaylistXSPFExt PlaylistFormat = "xspf_ext"
)

// PlaylistFormats lists every supported format in a stable order.
func PlaylistFormats() []PlaylistFormat {
	return []PlaylistFormat{PlaylistM3U8, PlaylistDPL, PlaylistDPLExt, PlaylistXSPF, PlaylistXSPFExt}
}

// PlaylistInfo is a rendered playlist ready to be served as a download.
type PlaylistInfo struct {
	Format      PlaylistFormat
	Content     string
	ContentType string
	FileName    string
}

// ParseResultVideo is the per-episode entry within a category parse result.
type ParseResultVideo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ParseResult describes what a submitted upstream URL points at, with relay
// endpoints for everything playable behind it.
type ParseResult struct {
	Type      string             `json:"type"`
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Category  string             `json:"category,omitempty"`
	URL       string             `json:"url"`
	Playlists map[string]string  `json:"playlists,omitempty"`
	Videos    []ParseResultVideo `json:"videos,omitempty"`
}
