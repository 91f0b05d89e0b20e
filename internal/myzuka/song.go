package myzuka

import (
	"errors"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/handiism/myzuka-downloader/internal/retry"
)

var (
	// ErrNoAudioLink is returned when a song page has no file link. The
	// site does this while it throttles a client, so it is worth retrying.
	ErrNoAudioLink = errors.New("no audio link on song page")

	// ErrTrackRemoved is returned for songs taken down by the right
	// holder. It is wrapped with retry.Permanent.
	ErrTrackRemoved = errors.New("track removed by right holder")
)

var dispositionFileName = regexp.MustCompile(`filename=(.+)`)

// SongLink is the file link found on a song page.
type SongLink struct {
	// URL is the absolute file URL.
	URL string

	// Name is the file name suggested by the page, possibly empty.
	Name string
}

// ParseSongPage finds the first audio download anchor on a song page.
func ParseSongPage(pageURL, htmlContent string) (SongLink, error) {
	for _, a := range anchors(htmlContent) {
		href := a["href"]
		if href == "" || a["itemprop"] != "audio" || !a.hasClass("no-ajaxy") {
			continue
		}
		return SongLink{URL: Absolute(pageURL, href), Name: a["download"]}, nil
	}

	if strings.Contains(htmlContent, removedMarker) {
		return SongLink{}, retry.Permanent(ErrTrackRemoved)
	}
	return SongLink{}, ErrNoAudioLink
}

// FileNameFromDisposition extracts the file name of a Content-Disposition
// header, or "" when it has none.
func FileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	m := dispositionFileName.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), `"';`)
}

// FileNameFromURL returns the unescaped last path element of fileURL, or
// "" when it does not look like a file.
func FileNameFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || !strings.Contains(base, ".") {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

// CleanFileName drops the site's "_myzuka" suffix from a file name.
func CleanFileName(name string) string {
	return strings.ReplaceAll(name, "_myzuka", "")
}
