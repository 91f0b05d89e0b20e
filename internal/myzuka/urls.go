package myzuka

import (
	"net/url"
	"regexp"
	"strings"
)

// BaseURL is the origin of the site.
const BaseURL = "http://myzuka.club"

var (
	albumURLPattern  = regexp.MustCompile(`(?i)/Album/.+`)
	artistURLPattern = regexp.MustCompile(`(?i)/Artist/.+`)
)

// IsAlbumURL reports whether u points at an album page.
func IsAlbumURL(u string) bool {
	return albumURLPattern.MatchString(u) && !IsArtistURL(u)
}

// IsArtistURL reports whether u points at an artist page.
func IsArtistURL(u string) bool {
	return artistURLPattern.MatchString(u)
}

// Origin returns "scheme://host" of pageURL, or BaseURL when it cannot be
// parsed.
func Origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return BaseURL
	}
	return u.Scheme + "://" + u.Host
}

// Absolute resolves href found on pageURL.
func Absolute(pageURL, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case strings.HasPrefix(href, "//"):
		u, err := url.Parse(pageURL)
		if err != nil || u.Scheme == "" {
			return "http:" + href
		}
		return u.Scheme + ":" + href
	case strings.HasPrefix(href, "/"):
		return Origin(pageURL) + href
	}
	return href
}
