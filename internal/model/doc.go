// Package model defines the core data structures used throughout
// the myzuka-downloader application.
//
// # Album
//
// Album represents a myzuka.club album with metadata and computed file paths:
//
//	album := model.NewAlbum("Artist", "Title", "1994", coverURL, pathConfig)
//	fmt.Println(album.Path)      // <downloads>/Artist - Title (1994)
//	fmt.Println(album.CoverPath) // <downloads>/Artist - Title (1994)/cover.jpg
//
// # Track
//
// Track represents a single song of an album. Its file name is resolved
// from the song page at download time:
//
//	track := model.NewTrack(album, 1, "Prelude", songPageURL)
//	fmt.Println(track.FallbackFileName()) // 01.mp3
package model
