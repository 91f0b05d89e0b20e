package audio

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"
)

// Info is what Inspect learns about a downloaded file.
type Info struct {
	// HasTag is set when the file carries ID3v2 frames.
	HasTag bool

	Title  string
	Artist string
	Album  string

	// Duration comes from the TLEN frame, zero when absent.
	Duration time.Duration

	// LooksLikeHTML is set when the file starts like a web page, which
	// means the server sent an error page instead of audio.
	LooksLikeHTML bool
}

// Inspector reads ID3 tags of finished downloads.
//
// Files are opened read-only and never re-tagged: the length of a file on
// disk is what a later run compares with the server to decide whether to
// resume, so rewriting tags would turn every complete file into a
// mismatch.
//
// Example:
//
//	info, err := audio.NewInspector().Inspect("/music/Album/01_prelude.mp3")
//	if info.LooksLikeHTML {
//	    fmt.Println("got an error page instead of a song")
//	}
type Inspector struct{}

// NewInspector creates an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect reads the tag of the file at path.
func (i *Inspector) Inspect(path string) (Info, error) {
	var info Info

	head, err := readHead(path, 512)
	if err != nil {
		return info, err
	}
	if looksLikeHTML(head) {
		info.LooksLikeHTML = true
		return info, nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return info, err
	}
	defer tag.Close()

	if !tag.HasFrames() {
		return info, nil
	}
	info.HasTag = true
	info.Title = strings.TrimSpace(tag.Title())
	info.Artist = strings.TrimSpace(tag.Artist())
	info.Album = strings.TrimSpace(tag.Album())
	if ms, err := strconv.Atoi(strings.TrimSpace(tag.GetTextFrame("TLEN").Text)); err == nil && ms > 0 {
		info.Duration = time.Duration(ms) * time.Millisecond
	}
	return info, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}

func looksLikeHTML(head []byte) bool {
	head = bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	lower := bytes.ToLower(head[:min(len(head), 16)])
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.HasPrefix(lower, []byte("<head"))
}
