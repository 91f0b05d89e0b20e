package myzuka

import (
	"errors"
	"regexp"
)

// ErrNoAlbumFound is returned when no album URLs can be found on an
// artist page.
//
// This typically occurs when:
//   - The URL is not an artist page
//   - The artist has no albums on the site
//   - The HTML structure has changed unexpectedly
var ErrNoAlbumFound = errors.New("no album found on page")

var albumHref = regexp.MustCompile(`/Album/.+`)

// Discography extracts album URLs from myzuka.club artist pages.
//
// Example usage:
//
//	disco := NewDiscography()
//	urls, err := disco.GetAlbumURLs(artistPageHTML)
//	for _, u := range urls {
//	    fmt.Println(Absolute(artistURL, u))
//	}
type Discography struct{}

// NewDiscography creates a new Discography service.
func NewDiscography() *Discography {
	return &Discography{}
}

// GetAlbumURLs returns the href of every link to an album, in page order.
// Albums appear several times on an artist page (cover, title, sidebar),
// duplicates are dropped.
//
// Returns ErrNoAlbumFound if the page links to no album.
func (d *Discography) GetAlbumURLs(htmlContent string) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	for _, a := range anchors(htmlContent) {
		href, ok := a["href"]
		if !ok || !albumHref.MatchString(href) || seen[href] {
			continue
		}
		seen[href] = true
		urls = append(urls, href)
	}

	if len(urls) == 0 {
		return nil, ErrNoAlbumFound
	}
	return urls, nil
}
