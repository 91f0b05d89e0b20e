package output

import (
	"strings"
	"testing"
)

func TestFileStatus(t *testing.T) {
	tests := []struct {
		name    string
		written int64
		total   int64
		want    string
	}{
		{"complete", 7 * 1024 * 1024, 7 * 1024 * 1024, "07.00 of 07.00 MB [100%]"},
		{"half", 512 * 1024, 1024 * 1024, "00.50 of 01.00 MB [ 50%]"},
		{"unknown total", 2 * 1024 * 1024, -1, "02.00 of 02.00 MB [100%]"},
		{"empty", 0, 0, "00.00 of 00.00 MB [100%]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FileStatus("01_song.mp3", tt.written, tt.total)
			if !strings.HasPrefix(got, "01_song.mp3 ") {
				t.Errorf("FileStatus() = %q, want file name first", got)
			}
			if !strings.HasSuffix(got, tt.want) {
				t.Errorf("FileStatus() = %q, want suffix %q", got, tt.want)
			}
		})
	}
}
