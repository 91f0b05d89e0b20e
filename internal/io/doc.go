// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Filename sanitization for server-provided names
//   - Directory creation
//   - Debug dumps of scraped pages
//   - Cover thumbnails
//
// # File Operations
//
//	// Ensure the album directory exists
//	err := ioutils.EnsureDir("/music/Artist - Album (1994)")
//
//	// Keep a copy of a page for debugging
//	path, err := ioutils.DumpPage(".", "download_album", html, time.Now())
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("01_song: part 1/2.mp3") // "01_song_ part 1_2.mp3"
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	err := svc.MakeThumbnail(ctx, coverPath, folderPath, 500)
package ioutils
