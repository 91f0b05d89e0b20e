// Package audio provides services for downloaded songs: playlist
// generation and read-only ID3 inspection.
//
// # Playlist Generation
//
// Generate playlists in various formats from the songs that were
// downloaded:
//
//	creator := audio.NewPlaylistCreator(model.PlaylistFormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(album, entries)
//	os.WriteFile(album.PlaylistPath, []byte(content), 0644)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
//
// # ID3 Inspection
//
// The Inspector reads title, artist, album and length from a finished
// song, and flags files that are really HTML error pages:
//
//	info, err := audio.NewInspector().Inspect(path)
package audio
