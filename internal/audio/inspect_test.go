package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaggedFile(t *testing.T, path string) {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetTitle("Prelude")
	tag.SetArtist("Johann Sebastian Bach")
	tag.SetAlbum("The 6 Cello Suites")
	tag.AddTextFrame("TLEN", tag.DefaultEncoding(), "154000")

	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	buf.Write(bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 1024))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestInspector_ReadsTagWithoutModifying(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01_prelude.mp3")
	writeTaggedFile(t, path)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	info, err := NewInspector().Inspect(path)
	require.NoError(t, err)

	assert.True(t, info.HasTag)
	assert.False(t, info.LooksLikeHTML)
	assert.Equal(t, "Prelude", info.Title)
	assert.Equal(t, "Johann Sebastian Bach", info.Artist)
	assert.Equal(t, "The 6 Cello Suites", info.Album)
	assert.Equal(t, 154*time.Second, info.Duration)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInspector_Untagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "02.mp3")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 256), 0644))

	info, err := NewInspector().Inspect(path)
	require.NoError(t, err)
	assert.False(t, info.HasTag)
	assert.False(t, info.LooksLikeHTML)
}

func TestInspector_DetectsErrorPage(t *testing.T) {
	tests := []string{
		"<!DOCTYPE html><html><body>Превышение лимита скачивания</body></html>",
		"\n  <html><head></head></html>",
		"\xef\xbb\xbf<HTML>",
	}
	for _, content := range tests {
		path := filepath.Join(t.TempDir(), "03.mp3")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		info, err := NewInspector().Inspect(path)
		require.NoError(t, err)
		assert.True(t, info.LooksLikeHTML, "content %q", content)
	}
}

func TestInspector_MissingFile(t *testing.T) {
	_, err := NewInspector().Inspect(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
