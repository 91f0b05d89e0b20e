package ioutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"01_prelude.mp3", "01_prelude.mp3"},
		{"01_song: part 1/2.mp3", "01_song_ part 1_2.mp3"},
		{"a<b>c.mp3", "a_b_c.mp3"},
		{"Track...", "Track"},
		{"  spaced   out.mp3 ", "spaced out.mp3"},
		{"tab\there.mp3", "tab_here.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Artist - Album (1994)", "nested")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, EnsureDir(filepath.Join(file, "sub")))
}

func TestDumpPage(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2020, 5, 17, 13, 4, 5, 0, time.UTC)

	path, err := DumpPage(dir, "download_album", "<html></html>", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "myzukalog-download_album-20200517-130405.log"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestWriteFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "playlist.m3u")
	assert.ErrorIs(t, WriteFile(ctx, path, []byte("#EXTM3U")), context.Canceled)
	assert.NoFileExists(t, path)
}
