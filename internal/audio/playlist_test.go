package audio

import (
	"strings"
	"testing"
	"time"

	"github.com/handiism/myzuka-downloader/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	album, entries := createTestAlbum()
	creator := NewPlaylistCreator(model.PlaylistFormatM3U, false)

	content := creator.CreatePlaylist(album, entries)

	want := "01_track1.mp3\n02_track2.mp3\n"
	if content != want {
		t.Errorf("M3U = %q, want %q", content, want)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	album, entries := createTestAlbum()
	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)

	content := creator.CreatePlaylist(album, entries)

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:180,Test Artist - track1\n") {
		t.Errorf("Extended M3U should contain EXTINF with duration, got %q", content)
	}
	if !strings.Contains(content, "#EXTINF:-1,Test Artist - track2\n") {
		t.Errorf("Unknown duration should be written as -1, got %q", content)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	album, entries := createTestAlbum()
	creator := NewPlaylistCreator(model.PlaylistFormatPLS, false)

	content := creator.CreatePlaylist(album, entries)

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File1=01_track1.mp3") {
		t.Error("PLS should contain File1=")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	album, entries := createTestAlbum()
	creator := NewPlaylistCreator(model.PlaylistFormatWPL, false)

	content := creator.CreatePlaylist(album, entries)

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<smil>") {
		t.Error("WPL should contain smil element")
	}
	if !strings.Contains(content, `<media src="02_track2.mp3"/>`) {
		t.Error("WPL should contain media elements")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	album, entries := createTestAlbum()
	creator := NewPlaylistCreator(model.PlaylistFormatZPL, false)

	content := creator.CreatePlaylist(album, entries)

	if !strings.Contains(content, "<?zpl") {
		t.Error("ZPL should contain XML declaration")
	}
	if !strings.Contains(content, `duration="180000"`) {
		t.Error("ZPL should contain the duration in milliseconds")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	album := model.NewAlbum("Artist & Co", "Album <Special>", "", "", &model.PathConfig{DownloadsPath: "/music"})
	entries := []Entry{{FileName: "01.mp3", Number: 1, Title: `Track & "Quote"`}}

	creator := NewPlaylistCreator(model.PlaylistFormatWPL, false)
	content := creator.CreatePlaylist(album, entries)

	if !strings.Contains(content, "Album &lt;Special&gt;") {
		t.Error("WPL should escape < and >")
	}

	content = NewPlaylistCreator(model.PlaylistFormatZPL, false).CreatePlaylist(album, entries)
	if !strings.Contains(content, `trackTitle="Track &amp; &quot;Quote&quot;"`) {
		t.Errorf("ZPL should escape attributes, got %q", content)
	}
}

func createTestAlbum() (*model.Album, []Entry) {
	album := model.NewAlbum("Test Artist", "Test Album", "2020", "", &model.PathConfig{DownloadsPath: "/music"})
	entries := []Entry{
		{FileName: "01_track1.mp3", Number: 1, Title: "track1", Duration: 180 * time.Second},
		{FileName: "02_track2.mp3", Number: 2, Title: "track2"},
	}
	return album, entries
}
