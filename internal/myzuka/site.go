package myzuka

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	ioutils "github.com/handiism/myzuka-downloader/internal/io"
	"github.com/handiism/myzuka-downloader/internal/model"
)

// PageClient is the subset of the HTTP client used for scraping.
type PageClient interface {
	GetString(ctx context.Context, url string) (string, error)
	Head(ctx context.Context, url string) (*http.Response, error)
}

// PageHook receives every scraped page, tagged with the step that fetched
// it. It is used to dump pages at the highest debug level.
type PageHook func(step, url, content string)

// Site fetches and parses myzuka.club pages.
type Site struct {
	client      PageClient
	parser      *Parser
	discography *Discography
	onPage      PageHook
	log         zerolog.Logger
}

// NewSite creates a Site. onPage may be nil.
func NewSite(client PageClient, pathCfg *model.PathConfig, onPage PageHook, log zerolog.Logger) *Site {
	return &Site{
		client:      client,
		parser:      NewParser(pathCfg, log),
		discography: NewDiscography(),
		onPage:      onPage,
		log:         log,
	}
}

func (s *Site) page(ctx context.Context, step, url string) (string, error) {
	content, err := s.client.GetString(ctx, url)
	if err != nil {
		return "", err
	}
	if s.onPage != nil {
		s.onPage(step, url, content)
	}
	return content, nil
}

// Album fetches and parses an album page.
func (s *Site) Album(ctx context.Context, albumURL string) (*model.Album, error) {
	content, err := s.page(ctx, "download_album", albumURL)
	if err != nil {
		return nil, fmt.Errorf("album page %s: %w", albumURL, err)
	}
	return s.parser.ParseAlbumPage(albumURL, content)
}

// AlbumURLs returns the absolute URLs of every album on an artist page.
func (s *Site) AlbumURLs(ctx context.Context, artistURL string) ([]string, error) {
	content, err := s.page(ctx, "download_artist", artistURL)
	if err != nil {
		return nil, fmt.Errorf("artist page %s: %w", artistURL, err)
	}
	hrefs, err := s.discography.GetAlbumURLs(content)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(hrefs))
	for i, href := range hrefs {
		urls[i] = Absolute(artistURL, href)
	}
	return urls, nil
}

// SongFile is a resolved song: where to fetch it and how to name it.
type SongFile struct {
	URL  string
	Name string
}

// ResolveSong scrapes a song page for its file link and picks a file name
// from, in order, the link's download attribute, the server's
// Content-Disposition, the URL path, and finally "<NN>.mp3". The "_myzuka"
// suffix is dropped and the name sanitized.
func (s *Site) ResolveSong(ctx context.Context, songURL string, number int) (SongFile, error) {
	content, err := s.page(ctx, "download_song", songURL)
	if err != nil {
		return SongFile{}, fmt.Errorf("song page %s: %w", songURL, err)
	}

	link, err := ParseSongPage(songURL, content)
	if err != nil {
		return SongFile{}, fmt.Errorf("song page %s: %w", songURL, err)
	}

	name := link.Name
	if name == "" {
		resp, err := s.client.Head(ctx, link.URL)
		if err != nil {
			if ctx.Err() != nil {
				return SongFile{}, ctx.Err()
			}
			s.log.Debug().Err(err).Str("url", link.URL).Msg("file name lookup failed")
		} else {
			name = FileNameFromDisposition(resp.Header.Get("Content-Disposition"))
		}
	}
	if name == "" {
		name = FileNameFromURL(link.URL)
	}

	name = ioutils.SanitizeFileName(CleanFileName(name))
	if name == "" {
		name = fmt.Sprintf("%02d.mp3", number)
	}
	return SongFile{URL: link.URL, Name: name}, nil
}
