package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Album represents a myzuka.club album with its metadata and tracks.
//
// Album contains all the information needed to download and organize music files:
//   - Artist, Title and Year for the directory name
//   - CoverURL for downloading cover art
//   - Tracks that can be downloaded and Absent ones removed from the site
//   - Computed paths for saving files locally
//
// Example:
//
//	cfg := &PathConfig{DownloadsPath: "/music", CoverFileName: "cover.jpg"}
//	album := NewAlbum("Johann Sebastian Bach", "The 6 Cello Suites (CD1)", "1994", coverURL, cfg)
//	// album.Path = "/music/Johann Sebastian Bach - The 6 Cello Suites (CD1) (1994)"
type Album struct {
	// Artist is the album artist name.
	Artist string

	// Title is the album title.
	Title string

	// Year is the release year as printed on the page. May be empty.
	Year string

	// PageURL is the album page the album was scraped from.
	PageURL string

	// CoverURL is the URL to download the album cover from.
	// Empty string means no cover is available.
	CoverURL string

	// Tracks contains all downloadable tracks in page order.
	Tracks []*Track

	// Absent lists tracks the site shows as removed.
	Absent []AbsentTrack

	// Path is the local directory where album files will be saved.
	Path string

	// CoverPath is the local file path for the cover. Empty without a cover.
	CoverPath string

	// PlaylistPath is the local file path for the playlist file.
	PlaylistPath string
}

// AbsentTrack is a track listed on the album page but removed from the
// site at the request of the right holder.
type AbsentTrack struct {
	Number int
	Title  string
}

// NewAlbum creates a new Album with computed paths based on settings.
func NewAlbum(artist, title, year, coverURL string, cfg *PathConfig) *Album {
	album := &Album{
		Artist:   artist,
		Title:    title,
		Year:     year,
		CoverURL: coverURL,
	}

	album.Path = filepath.Join(cfg.DownloadsPath, album.DirName())
	album.PlaylistPath = album.parsePlaylistPath(cfg)
	if album.HasCover() {
		album.CoverPath = filepath.Join(album.Path, cfg.coverFileName())
	}

	return album
}

// HasCover returns true if the album has cover art available for download.
func (a *Album) HasCover() bool {
	return a.CoverURL != ""
}

// DirName returns "Artist - Title (Year)", or "Artist - Title" without a
// year, sanitized for use as a directory name.
func (a *Album) DirName() string {
	name := a.Artist + " - " + a.Title
	if a.Year != "" {
		name += " (" + a.Year + ")"
	}
	return sanitizeFileName(name)
}

// String returns a one-line description used in progress messages.
func (a *Album) String() string {
	return fmt.Sprintf("%s - %s (%d tracks)", a.Artist, a.Title, len(a.Tracks))
}

// PathConfig holds path settings for albums.
//
// PlaylistFileNameFormat supports the {artist}, {album} and {year}
// placeholders.
//
// Example configuration:
//
//	cfg := &PathConfig{
//	    DownloadsPath:          "/home/user/Music",
//	    CoverFileName:          "cover.jpg",
//	    PlaylistFileNameFormat: "{album}",
//	    PlaylistFormat:         PlaylistFormatM3U,
//	}
type PathConfig struct {
	// DownloadsPath is the base directory album directories are created in.
	DownloadsPath string

	// CoverFileName is the fixed file name of the cover. Defaults to cover.jpg.
	CoverFileName string

	// PlaylistFileNameFormat is the filename template for playlists (without extension).
	PlaylistFileNameFormat string

	// PlaylistFormat determines the playlist file type and extension.
	PlaylistFormat PlaylistFormat
}

func (c *PathConfig) coverFileName() string {
	if c.CoverFileName == "" {
		return "cover.jpg"
	}
	return c.CoverFileName
}

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files (most widely supported).
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files (used by Winamp).
	PlaylistFormatPLS

	// PlaylistFormatWPL creates .wpl playlist files (Windows Media Player).
	PlaylistFormatWPL

	// PlaylistFormatZPL creates .zpl playlist files (Zune Media Player).
	PlaylistFormatZPL
)

// ParsePlaylistFormat maps a settings value to a format, defaulting to M3U.
func ParsePlaylistFormat(s string) PlaylistFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pls":
		return PlaylistFormatPLS
	case "wpl":
		return PlaylistFormatWPL
	case "zpl":
		return PlaylistFormatZPL
	default:
		return PlaylistFormatM3U
	}
}

// Extension returns the file extension for the playlist format, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatPLS:
		return ".pls"
	case PlaylistFormatWPL:
		return ".wpl"
	case PlaylistFormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// parsePlaylistPath computes the full playlist file path.
func (a *Album) parsePlaylistPath(cfg *PathConfig) string {
	fileName := cfg.PlaylistFileNameFormat
	if fileName == "" {
		fileName = "{album}"
	}
	fileName = strings.ReplaceAll(fileName, "{year}", a.Year)
	fileName = strings.ReplaceAll(fileName, "{album}", a.Title)
	fileName = strings.ReplaceAll(fileName, "{artist}", a.Artist)
	return filepath.Join(a.Path, sanitizeFileName(fileName)+cfg.PlaylistFormat.Extension())
}

var (
	invalidDirChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots    = regexp.MustCompile(`\.+$`)
	multiSpace      = regexp.MustCompile(`\s+`)
)

// sanitizeFileName makes a directory or file name safe on every platform.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with a space
//   - Multiple whitespace is collapsed to single space
//   - Trailing dots and surrounding whitespace are removed
//
// Example:
//
//	sanitizeFileName("AC/DC - Live: 1992") // Returns "AC DC - Live 1992"
func sanitizeFileName(name string) string {
	name = invalidDirChars.ReplaceAllString(name, " ")
	name = multiSpace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
