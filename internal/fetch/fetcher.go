package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	mzhttp "github.com/handiism/myzuka-downloader/internal/http"
)

const (
	// DefaultPlaceholderThreshold is the largest on-disk size that is
	// treated as a quota page rather than a partial download.
	DefaultPlaceholderThreshold = 8192

	// DefaultSuspiciousSize is the declared size at or below which the
	// resource is probably an error page.
	DefaultSuspiciousSize = 1024

	DefaultSizeLookupAttempts = 5
	DefaultChunkSize          = 8 * 1024
)

var (
	// ErrInconsistentSize is recorded when the local file is larger than
	// the resource, or the transfer produced more bytes than declared.
	ErrInconsistentSize = errors.New("local size exceeds declared size")

	// ErrUnexpectedRange is recorded when a partial response does not
	// start where the local file ends.
	ErrUnexpectedRange = errors.New("partial content starts at unexpected offset")
)

// Opener is the subset of the HTTP client the Fetcher needs. Open is
// expected to retry transient network failures on its own; HeadOnce makes
// exactly one request.
type Opener interface {
	Open(ctx context.Context, url, rangeHeader string) (*http.Response, error)
	HeadOnce(ctx context.Context, url string) (*http.Response, error)
}

// Options tunes a Fetcher. Zero fields take the package defaults.
type Options struct {
	PlaceholderThreshold int64
	SuspiciousSize       int64
	SizeLookupAttempts   int
	ChunkSize            int

	// OnProgress is called after every chunk with the file length so far
	// and the declared total (0 when unknown). It runs on the fetching
	// goroutine.
	OnProgress func(path string, written, total int64)

	Logger zerolog.Logger
}

// DefaultOptions returns the thresholds used against myzuka.club.
func DefaultOptions() Options {
	return Options{
		PlaceholderThreshold: DefaultPlaceholderThreshold,
		SuspiciousSize:       DefaultSuspiciousSize,
		SizeLookupAttempts:   DefaultSizeLookupAttempts,
		ChunkSize:            DefaultChunkSize,
		Logger:               zerolog.Nop(),
	}
}

// Fetcher downloads one URL to one path per call. It holds no per-call
// state and is safe for concurrent use on distinct paths.
type Fetcher struct {
	client Opener
	opts   Options
	log    zerolog.Logger
}

// NewFetcher creates a Fetcher using client for every request.
func NewFetcher(client Opener, opts Options) *Fetcher {
	def := DefaultOptions()
	if opts.PlaceholderThreshold <= 0 {
		opts.PlaceholderThreshold = def.PlaceholderThreshold
	}
	if opts.SuspiciousSize <= 0 {
		opts.SuspiciousSize = def.SuspiciousSize
	}
	if opts.SizeLookupAttempts <= 0 {
		opts.SizeLookupAttempts = def.SizeLookupAttempts
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	return &Fetcher{client: client, opts: opts, log: opts.Logger}
}

// Fetch brings the file at dest up to date with url.
//
// The returned error is non-nil only when ctx ends; the state then
// describes how far the attempt got. Every other problem is reported as
// an Outcome with TransferState.Err set.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (*TransferState, error) {
	state := &TransferState{URL: url, Path: dest, ReportedTotal: -1}
	log := f.log.With().Str("file", dest).Logger()

	resp, err := f.client.Open(ctx, url, "")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, ctxErr
		}
		return state.fail(err), nil
	}
	defer func() { resp.Body.Close() }()

	existing := localSize(dest)
	if existing > 0 && existing <= f.opts.PlaceholderThreshold {
		log.Debug().Int64("size", existing).Msg("existing file looks like a placeholder, restarting")
		existing = 0
	}

	total, err := f.reportedSize(ctx, url, resp)
	if err != nil {
		return state, err
	}
	state.ReportedTotal = total
	if total >= 0 && total <= f.opts.SuspiciousSize {
		log.Warn().Int64("size", total).Msg("file size too small, might be an error page, please verify manually")
	}

	switch {
	case total < 0:
		if existing > 0 {
			log.Warn().Int64("existing", existing).Msg("cannot verify partial file without a size, restarting")
			existing = 0
		}
	case existing > 0 && existing == total:
		state.ExistingBytes = existing
		state.FinalSize = existing
		state.Outcome = Skipped
		return state, nil
	case existing > total:
		state.ExistingBytes = existing
		state.FinalSize = existing
		return state.fail(fmt.Errorf("%w: %d bytes on disk, %d declared", ErrInconsistentSize, existing, total)), nil
	case existing > 0:
		resp.Body.Close()
		resp, err = f.client.Open(ctx, url, fmt.Sprintf("bytes=%d-%d", existing, total-1))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				resp = emptyResponse()
				return state, ctxErr
			}
			log.Warn().Err(err).Msg("range request refused, restarting download at beginning")
			existing = 0
			resp, err = f.client.Open(ctx, url, "")
			if err != nil {
				resp = emptyResponse()
				if ctxErr := ctx.Err(); ctxErr != nil {
					return state, ctxErr
				}
				state.FinalSize = localSize(dest)
				return state.fail(err), nil
			}
		} else if resp.StatusCode == http.StatusPartialContent {
			if start, ok := contentRangeStart(resp.Header.Get("Content-Range")); ok && start != existing {
				state.ExistingBytes = existing
				state.FinalSize = existing
				return state.fail(fmt.Errorf("%w: asked for %d, got %d", ErrUnexpectedRange, existing, start)), nil
			}
			state.SupportsPartial = true
		} else {
			log.Warn().Int("status", resp.StatusCode).Msg("range/partial download is not supported by server, restarting download at beginning")
			existing = 0
		}
	}
	state.ExistingBytes = existing

	return f.stream(ctx, state, resp.Body, log)
}

// stream copies body into the destination file, appending when the state
// says the server honoured the range.
func (f *Fetcher) stream(ctx context.Context, state *TransferState, body io.Reader, log zerolog.Logger) (*TransferState, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if state.SupportsPartial {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(state.Path, flags, 0644)
	if err != nil {
		state.FinalSize = localSize(state.Path)
		return state.fail(fmt.Errorf("open %s: %w", state.Path, err)), nil
	}

	total := max(state.ReportedTotal, 0)
	pw := &mzhttp.ProgressWriter{Writer: file, Total: total, Written: state.ExistingBytes}
	if f.opts.OnProgress != nil {
		pw.OnUpdate = func(written, total int64) { f.opts.OnProgress(state.Path, written, total) }
	}

	var streamErr error
	buf := make([]byte, f.opts.ChunkSize)
	for {
		if ctx.Err() != nil {
			break
		}
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := pw.Write(buf[:n]); werr != nil {
				streamErr = fmt.Errorf("write %s: %w", state.Path, werr)
				break
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if state.ReportedTotal >= 0 && cutShort(rerr) {
				// the size check below turns this into Incomplete
				log.Debug().Err(rerr).Int64("written", pw.Written).Msg("connection dropped")
				state.Err = rerr
				break
			}
			streamErr = rerr
			break
		}
	}

	syncErr := file.Sync()
	closeErr := file.Close()

	state.Written = pw.Written - state.ExistingBytes
	state.FinalSize = pw.Written

	if ctxErr := ctx.Err(); ctxErr != nil {
		return state, ctxErr
	}
	if streamErr != nil {
		log.Debug().Err(streamErr).Int64("written", state.Written).Msg("transfer interrupted")
		return state.fail(streamErr), nil
	}
	if err := errors.Join(syncErr, closeErr); err != nil {
		return state.fail(fmt.Errorf("close %s: %w", state.Path, err)), nil
	}

	switch {
	case state.ReportedTotal < 0:
		log.Warn().Int64("size", state.FinalSize).Msg("file downloaded, but could not verify if it is complete")
		state.Outcome = SizeUnknown
	case state.FinalSize == state.ReportedTotal:
		state.Outcome = Complete
	case state.FinalSize < state.ReportedTotal:
		state.Outcome = Incomplete
	default:
		return state.fail(fmt.Errorf("%w: wrote %d bytes, %d declared", ErrInconsistentSize, state.FinalSize, state.ReportedTotal)), nil
	}
	return state, nil
}

// cutShort reports whether err means the body ended before its declared
// length rather than a local failure.
func cutShort(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, mzhttp.ErrStalled)
}

// reportedSize reads the declared length from the open response, then
// asks again with one HEAD request per remaining attempt. A failed HEAD
// uses up its attempt. It returns -1 when no attempt yields a length.
func (f *Fetcher) reportedSize(ctx context.Context, url string, resp *http.Response) (int64, error) {
	if resp.ContentLength >= 0 {
		return resp.ContentLength, nil
	}
	for attempt := 2; attempt <= f.opts.SizeLookupAttempts; attempt++ {
		head, err := f.client.HeadOnce(ctx, url)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, ctxErr
		}
		if err != nil {
			f.log.Debug().Err(err).Int("attempt", attempt).Str("url", url).Msg("size lookup failed")
			continue
		}
		if head.ContentLength >= 0 {
			return head.ContentLength, nil
		}
		f.log.Debug().Int("attempt", attempt).Str("url", url).Msg("no Content-Length, retrying")
	}
	f.log.Warn().Str("url", url).Msg("unable to get the real size from the server")
	return -1, nil
}

func localSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// contentRangeStart parses the first byte position of a
// "bytes <start>-<end>/<size>" header.
func contentRangeStart(header string) (int64, bool) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return 0, false
	}
	startStr, _, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}

func emptyResponse() *http.Response {
	return &http.Response{Body: http.NoBody}
}
