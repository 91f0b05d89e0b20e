package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mzhttp "github.com/handiism/myzuka-downloader/internal/http"
	"github.com/handiism/myzuka-downloader/internal/retry"
)

const mib = 1 << 20

// fileServer serves data and counts the body bytes it hands out.
type fileServer struct {
	data []byte

	ranges       bool  // honour Range requests
	chunked      bool  // omit Content-Length on GET
	noHeadLength bool  // omit Content-Length on HEAD
	serve        int   // bytes to send on a full GET, 0 for all
	rangeStart   int64 // answer ranges from this offset when >= 0
	headStatus   int   // status for HEAD, 0 for 200
	rangeStatus  int   // error status for ranged GET, 0 to serve it

	fullSent   atomic.Int64
	rangedSent atomic.Int64
	heads      atomic.Int32
}

func newFileServer(t *testing.T, size int) (*fileServer, *httptest.Server) {
	t.Helper()
	data := make([]byte, size)
	r := rand.New(rand.NewPCG(uint64(size), 42))
	for i := range data {
		data[i] = byte(r.UintN(256))
	}
	fs := &fileServer{data: data, ranges: true, rangeStart: -1}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		fs.heads.Add(1)
		if fs.headStatus != 0 {
			w.WriteHeader(fs.headStatus)
			return
		}
		if !fs.noHeadLength {
			w.Header().Set("Content-Length", strconv.Itoa(len(fs.data)))
		}
		return
	}

	if rng := r.Header.Get("Range"); fs.ranges && rng != "" {
		if fs.rangeStatus != 0 {
			w.WriteHeader(fs.rangeStatus)
			return
		}
		var start, end int64
		if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &start, &end); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if fs.rangeStart >= 0 {
			start = fs.rangeStart
		}
		body := fs.data[start : end+1]
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(fs.data)))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusPartialContent)
		n, _ := w.Write(body)
		fs.rangedSent.Add(int64(n))
		return
	}

	body := fs.data
	if fs.serve > 0 {
		body = body[:fs.serve]
	}
	if fs.chunked {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
	} else {
		w.Header().Set("Content-Length", strconv.Itoa(len(fs.data)))
	}
	n, _ := w.Write(body)
	fs.fullSent.Add(int64(n))
}

func newTestFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	client, err := mzhttp.NewClient(mzhttp.Config{
		Timeout: 2 * time.Second,
		Retry:   &retry.Policy{MaxAttempts: 3, Backoff: retry.NoBackoff},
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return NewFetcher(client, opts)
}

func destPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "01 track.mp3")
}

func TestFetch_FreshDownload(t *testing.T) {
	fs, srv := newFileServer(t, 10*mib)
	dest := destPath(t)

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	assert.Equal(t, int64(10*mib), state.ReportedTotal)
	assert.Equal(t, int64(10*mib), state.Written)
	assert.Equal(t, int64(10*mib), state.FinalSize)
	assert.Zero(t, state.ExistingBytes)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got), "file content differs from resource")
}

func TestFetch_SecondCallSkips(t *testing.T) {
	_, srv := newFileServer(t, 64*1024)
	dest := destPath(t)
	f := newTestFetcher(t, Options{})

	first, err := f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	require.Equal(t, Complete, first.Outcome)
	before, err := os.Stat(dest)
	require.NoError(t, err)

	second, err := f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, Skipped, second.Outcome)
	assert.Zero(t, second.Written)
	assert.True(t, second.Outcome.Succeeded())

	after, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, before.Size(), after.Size())
}

func TestFetch_ResumeWithRange(t *testing.T) {
	fs, srv := newFileServer(t, 10*mib)
	dest := destPath(t)
	require.NoError(t, os.WriteFile(dest, fs.data[:4*mib], 0644))

	var progress []int64
	f := newTestFetcher(t, Options{OnProgress: func(_ string, written, total int64) {
		progress = append(progress, written)
		assert.Equal(t, int64(10*mib), total)
	}})

	state, err := f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	assert.True(t, state.SupportsPartial)
	assert.Equal(t, int64(4*mib), state.ExistingBytes)
	assert.Equal(t, int64(6*mib), state.Written)
	assert.Equal(t, int64(6*mib), fs.rangedSent.Load())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got), "resumed file differs from resource")

	require.NotEmpty(t, progress)
	assert.Greater(t, progress[0], int64(4*mib))
	assert.Equal(t, int64(10*mib), progress[len(progress)-1])
}

func TestFetch_ResumeRefusedRestartsFromZero(t *testing.T) {
	fs, srv := newFileServer(t, 10*mib)
	fs.ranges = false
	dest := destPath(t)
	require.NoError(t, os.WriteFile(dest, fs.data[:4*mib], 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	assert.False(t, state.SupportsPartial)
	assert.Zero(t, state.ExistingBytes)
	assert.Equal(t, int64(10*mib), state.Written)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Len(t, got, 10*mib)
	assert.True(t, bytes.Equal(fs.data, got), "restart duplicated the prefix")
}

func TestFetch_RangeStatusErrorRestartsFromZero(t *testing.T) {
	fs, srv := newFileServer(t, 100*1024)
	fs.rangeStatus = http.StatusRequestedRangeNotSatisfiable
	dest := destPath(t)
	require.NoError(t, os.WriteFile(dest, fs.data[:40*1024], 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	assert.NoError(t, state.Err)
	assert.False(t, state.SupportsPartial)
	assert.Zero(t, state.ExistingBytes)
	assert.Equal(t, int64(100*1024), state.Written)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got))
}

func TestFetch_PlaceholderIsNeverResumed(t *testing.T) {
	fs, srv := newFileServer(t, 1*mib)
	dest := destPath(t)
	quota := []byte(strings.Repeat("<html>Превышение лимита скачивания</html>", 8192))[:8192]
	require.NoError(t, os.WriteFile(dest, quota, 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	assert.Zero(t, state.ExistingBytes)
	assert.Zero(t, fs.rangedSent.Load())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got))
}

// A genuine resource no larger than the placeholder threshold cannot be
// told apart from a quota page, so a complete copy is downloaded again.
func TestFetch_SmallCompleteFileIsRedownloaded(t *testing.T) {
	fs, srv := newFileServer(t, 8000)
	dest := destPath(t)
	require.NoError(t, os.WriteFile(dest, fs.data, 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome, "known boundary: not Skipped")
	assert.Equal(t, int64(8000), state.Written)
}

func TestFetch_LocalFileLargerThanResource(t *testing.T) {
	_, srv := newFileServer(t, 10000)
	dest := destPath(t)
	stale := bytes.Repeat([]byte{0xAB}, 20000)
	require.NoError(t, os.WriteFile(dest, stale, 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Failed, state.Outcome)
	assert.ErrorIs(t, state.Err, ErrInconsistentSize)
	assert.Zero(t, state.Written)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, stale, got, "file must be left untouched")
}

func TestFetch_UnknownSize(t *testing.T) {
	fs, srv := newFileServer(t, 100*1024)
	fs.chunked = true
	fs.noHeadLength = true
	dest := destPath(t)
	require.NoError(t, os.WriteFile(dest, fs.data[:9000], 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, SizeUnknown, state.Outcome)
	assert.True(t, state.Outcome.Succeeded())
	assert.Equal(t, int64(-1), state.ReportedTotal)
	assert.Zero(t, state.ExistingBytes, "unverifiable partial data is discarded")
	assert.Equal(t, int32(DefaultSizeLookupAttempts-1), fs.heads.Load())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got))
}

func TestFetch_HeadFailuresCountAsLookupAttempts(t *testing.T) {
	fs, srv := newFileServer(t, 100*1024)
	fs.chunked = true
	fs.headStatus = http.StatusForbidden

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	state, err := newTestFetcher(t, Options{}).Fetch(ctx, srv.URL, destPath(t))
	require.NoError(t, err)

	assert.Equal(t, SizeUnknown, state.Outcome)
	assert.Equal(t, int64(-1), state.ReportedTotal)
	assert.Equal(t, int32(DefaultSizeLookupAttempts-1), fs.heads.Load())
}

func TestFetch_SizeFromHead(t *testing.T) {
	fs, srv := newFileServer(t, 100*1024)
	fs.chunked = true

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, destPath(t))
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	assert.Equal(t, int64(100*1024), state.ReportedTotal)
	assert.Equal(t, int32(1), fs.heads.Load())
}

func TestFetch_ShortBodyThenResume(t *testing.T) {
	fs, srv := newFileServer(t, 200*1024)
	fs.chunked = true
	fs.serve = 50 * 1024
	dest := destPath(t)
	f := newTestFetcher(t, Options{})

	state, err := f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, Incomplete, state.Outcome)
	assert.Equal(t, int64(50*1024), state.FinalSize)
	assert.False(t, state.Outcome.Succeeded())

	fs.serve = 0
	state, err = f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, Complete, state.Outcome)
	assert.Equal(t, int64(150*1024), state.Written)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got))
}

func TestFetch_DroppedConnectionIsIncomplete(t *testing.T) {
	fs, srv := newFileServer(t, 200*1024)
	dropped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.Header.Get("Range") == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(fs.data)))
			w.Write(fs.data[:50*1024])
			w.(http.Flusher).Flush()
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		fs.ServeHTTP(w, r)
	}))
	defer dropped.Close()
	dest := destPath(t)
	f := newTestFetcher(t, Options{})

	state, err := f.Fetch(context.Background(), dropped.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, Incomplete, state.Outcome)
	assert.Equal(t, int64(50*1024), state.FinalSize)
	assert.Equal(t, int64(200*1024), state.ReportedTotal)
	assert.ErrorIs(t, state.Err, io.ErrUnexpectedEOF)

	state, err = f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, Complete, state.Outcome)
	assert.Equal(t, int64(150*1024), state.Written)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(fs.data, got))
}

func TestFetch_RangeAtWrongOffset(t *testing.T) {
	fs, srv := newFileServer(t, 100*1024)
	fs.rangeStart = 0
	dest := destPath(t)
	partial := fs.data[:40*1024]
	require.NoError(t, os.WriteFile(dest, partial, 0644))

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Failed, state.Outcome)
	assert.ErrorIs(t, state.Err, ErrUnexpectedRange)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, partial, got)
}

func TestFetch_SuspiciouslySmallStillDownloads(t *testing.T) {
	fs, srv := newFileServer(t, 500)
	dest := destPath(t)

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Complete, state.Outcome)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, fs.data, got)
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	dest := destPath(t)

	state, err := newTestFetcher(t, Options{}).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	assert.Equal(t, Failed, state.Outcome)
	assert.True(t, retry.IsPermanent(state.Err))
	assert.NoFileExists(t, dest)
}

func TestFetch_CancelMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(4*mib))
		w.Write(make([]byte, mib))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()
	dest := destPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newTestFetcher(t, Options{OnProgress: func(_ string, written, _ int64) {
		if written >= 512*1024 {
			cancel()
		}
	}})

	state, err := f.Fetch(ctx, srv.URL, dest)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, state)

	info, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.Equal(t, state.FinalSize, info.Size(), "partial file must stay a valid resume point")
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{Complete, "complete"},
		{Skipped, "skipped"},
		{Incomplete, "incomplete"},
		{Failed, "failed"},
		{SizeUnknown, "size unknown"},
		{Outcome(42), "outcome(42)"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.outcome), got, tt.want)
		}
	}
}

func TestContentRangeStart(t *testing.T) {
	tests := []struct {
		header string
		want   int64
		ok     bool
	}{
		{"bytes 100-199/200", 100, true},
		{"bytes 0-0/1", 0, true},
		{"bytes */200", 0, false},
		{"", 0, false},
		{"items 1-2/3", 0, false},
	}
	for _, tt := range tests {
		got, ok := contentRangeStart(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("contentRangeStart(%q) = %d, %v; want %d, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
