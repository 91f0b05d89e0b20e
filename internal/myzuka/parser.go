package myzuka

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/handiism/myzuka-downloader/internal/model"
)

// Fallbacks used when the album page does not show a value.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

const (
	downloadTitlePrefix = "Скачать"
	removedMarker       = "[Удален по требованию правообладателя]"
)

var (
	artistPattern = regexp.MustCompile(`(?s)<td>Исполнитель:</td>\s*<td>\s*<a [^>]*>\s*` +
		`<meta [^>]*itemprop="url"[^>]*>\s*<meta [^>]*itemprop="name"[^>]*>\s*([^<]+?)\s*</a>`)

	titlePattern = regexp.MustCompile(`(?s)<span itemprop="title">[^<]+</span>\s*</a>/\s*` +
		`<span [^>]*itemtype="http://data-vocabulary.org/Breadcrumb"[^>]*>([^<]+)</span>`)

	yearPattern  = regexp.MustCompile(`<time datetime="(\d+)[^"]*" itemprop="datePublished"></time>`)
	coverPattern = regexp.MustCompile(`<img alt="[^"]*" itemprop="image" src="([^"]+)"\s*/?>`)

	positionHead = regexp.MustCompile(`^\s*(\d+)\s*</div>`)
	songHref     = regexp.MustCompile(`<a href="(/Song/[^"]+)"`)
	removedTitle = regexp.MustCompile(`<span>([^<]+)</span>\s*<span class=[^>]*>` + regexp.QuoteMeta(removedMarker) + `</span>`)
)

// Parser extracts album information from myzuka.club album pages.
//
// Example usage:
//
//	parser := NewParser(pathConfig, logger)
//	album, err := parser.ParseAlbumPage(pageURL, htmlContent)
//	for _, track := range album.Tracks {
//	    fmt.Printf("  %02d. %s\n", track.Number, track.Title)
//	}
type Parser struct {
	pathConfig *model.PathConfig
	log        zerolog.Logger
}

// NewParser creates a new Parser. pathCfg decides where albums are saved.
func NewParser(pathCfg *model.PathConfig, log zerolog.Logger) *Parser {
	return &Parser{pathConfig: pathCfg, log: log}
}

// ParseAlbumPage extracts album info from the HTML of pageURL.
//
// Missing artist or title fall back to UnknownArtist and UnknownAlbum with
// a warning; a missing year is left empty. Song links are the /Song/
// anchors titled "Скачать ...", in page order and without duplicates.
// Their position on the page gives the track number, 0 when it cannot be
// found.
func (p *Parser) ParseAlbumPage(pageURL, htmlContent string) (*model.Album, error) {
	page := html.UnescapeString(htmlContent)

	artist := firstGroup(artistPattern, page)
	if artist == "" {
		p.log.Warn().Str("url", pageURL).Msg("unable to get artist name, using fallback")
		artist = UnknownArtist
	}
	title := firstGroup(titlePattern, page)
	if title == "" {
		p.log.Warn().Str("url", pageURL).Msg("unable to get album name, using fallback")
		title = UnknownAlbum
	}
	year := firstGroup(yearPattern, page)
	if year == "" {
		p.log.Info().Str("url", pageURL).Msg("album year not shown")
	}

	cover := firstGroup(coverPattern, page)
	if cover != "" {
		cover = Absolute(pageURL, cover)
	}

	album := model.NewAlbum(artist, title, year, cover, p.pathConfig)
	album.PageURL = pageURL

	positions, absent := parsePositions(page)
	album.Absent = absent

	seen := make(map[string]bool)
	for _, a := range anchors(htmlContent) {
		href := a["href"]
		if !strings.HasPrefix(href, "/Song/") || !strings.HasPrefix(a["title"], downloadTitlePrefix) || seen[href] {
			continue
		}
		seen[href] = true

		number, ok := positions[href]
		if !ok {
			p.log.Warn().Str("song", href).Msg("unable to get track number")
		}
		songTitle := strings.TrimSpace(strings.TrimPrefix(a["title"], downloadTitlePrefix))
		album.Tracks = append(album.Tracks, model.NewTrack(album, number, songTitle, Absolute(pageURL, href)))
	}

	return album, nil
}

// parsePositions walks the track list blocks. Each block starts with the
// position div and holds either a song link or the removed marker.
func parsePositions(page string) (map[string]int, []model.AbsentTrack) {
	positions := make(map[string]int)
	var absent []model.AbsentTrack

	blocks := strings.Split(page, `<div class="position">`)
	for _, block := range blocks[1:] {
		m := positionHead.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		if strings.Contains(block, "glyphicon-ban-circle") {
			if rm := removedTitle.FindStringSubmatch(block); rm != nil {
				absent = append(absent, model.AbsentTrack{Number: number, Title: strings.TrimSpace(rm[1])})
				continue
			}
		}
		if sm := songHref.FindStringSubmatch(block); sm != nil {
			if _, dup := positions[sm[1]]; !dup {
				positions[sm[1]] = number
			}
		}
	}
	return positions, absent
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// FormatAbsent renders an absent track the way it is reported to the user.
func FormatAbsent(t model.AbsentTrack) string {
	return fmt.Sprintf("The track number %d (%s) is absent from website", t.Number, t.Title)
}
