package model

import "fmt"

// Track represents a single downloadable song within an album.
//
// The actual file name is only known once the song page is scraped, so a
// Track carries the song page URL rather than a file URL.
type Track struct {
	// Album is a reference to the parent album.
	Album *Album

	// Number is the position on the album page, 0 when it could not be read.
	Number int

	// Title is the song title taken from the download link.
	Title string

	// PageURL is the absolute URL of the song page.
	PageURL string
}

// NewTrack creates a new Track.
func NewTrack(album *Album, number int, title, pageURL string) *Track {
	return &Track{
		Album:   album,
		Number:  number,
		Title:   title,
		PageURL: pageURL,
	}
}

// FallbackFileName is used when neither the page nor the server names the
// file.
func (t *Track) FallbackFileName() string {
	return fmt.Sprintf("%02d.mp3", t.Number)
}
