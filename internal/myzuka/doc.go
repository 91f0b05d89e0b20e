// Package myzuka extracts album, artist and song information from
// myzuka.club HTML pages.
//
// The site has no API, so everything is read from the page markup with
// regular expressions tuned to its layout:
//
//   - Album pages (/Album/<id>/<slug>) give the artist, title, year,
//     cover and the list of song pages, plus tracks removed by the right
//     holder.
//   - Artist pages (/Artist/<id>/<slug>/Albums) link to every album.
//   - Song pages (/Song/<id>/<slug>) hold the actual file link.
//
// # Basic Usage
//
//	site := myzuka.NewSite(client, pathConfig, logger)
//
//	album, err := site.Album(ctx, "http://myzuka.club/Album/630746/The-6-Cello-Suites-Cd1-1994")
//	for _, track := range album.Tracks {
//	    file, err := site.ResolveSong(ctx, track.PageURL, track.Number)
//	    fmt.Println(file.URL, file.Name)
//	}
package myzuka
