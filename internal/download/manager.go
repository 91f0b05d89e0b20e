package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handiism/myzuka-downloader/internal/audio"
	"github.com/handiism/myzuka-downloader/internal/config"
	"github.com/handiism/myzuka-downloader/internal/fetch"
	mzhttp "github.com/handiism/myzuka-downloader/internal/http"
	ioutils "github.com/handiism/myzuka-downloader/internal/io"
	"github.com/handiism/myzuka-downloader/internal/model"
	"github.com/handiism/myzuka-downloader/internal/myzuka"
	"github.com/handiism/myzuka-downloader/internal/output"
)

var (
	// ErrUnsupportedURL is returned for URLs that are neither album nor
	// artist pages.
	ErrUnsupportedURL = errors.New("url is not a myzuka.club album or artist page")

	// ErrNothingToDownload is returned by Initialize when no album could be
	// read from the input.
	ErrNothingToDownload = errors.New("no album found")
)

// Messages printed at the end of an album or artist.
const (
	MsgAlbumFinished   = "ALBUM DOWNLOAD FINISHED"
	MsgAlbumIncomplete = "ALBUM DOWNLOAD INCOMPLETE, TRACK(S) MISSING ON WEBSITE"
	MsgArtistFinished  = "ARTIST DOWNLOAD FINISHED"
)

// Suffixes appended to a file status line.
const (
	suffixSkipped    = " (skipped)"
	suffixUnverified = " (file downloaded, but could not verify if it is complete)"
	suffixIncomplete = " (file download incomplete, retrying)"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// source is one input URL and the albums it expanded to.
type source struct {
	url    string
	artist bool
	albums []*model.Album
}

// Manager coordinates album downloads.
type Manager struct {
	settings     *config.Settings
	site         *myzuka.Site
	coordinator  *Coordinator
	inspector    *audio.Inspector
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	log          zerolog.Logger
	runID        uuid.UUID

	sources []*source

	totalBytes      int64
	receivedBytes   int64
	totalFiles      int32
	downloadedFiles int32

	// per-path byte counts behind totalBytes and receivedBytes
	files map[string]*fileProgress

	onProgress func(ProgressEvent)
	emitMu     sync.Mutex
	mu         sync.RWMutex
}

type fileProgress struct {
	written int64
	total   int64
}

// NewManager creates a new download Manager. It fails when the settings
// describe an unusable HTTP client, e.g. a malformed proxy address.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) (*Manager, error) {
	m := &Manager{
		settings:     settings,
		inspector:    audio.NewInspector(),
		playlist:     audio.NewPlaylistCreator(model.ParsePlaylistFormat(settings.PlaylistFormat), settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		runID:        uuid.New(),
		files:        make(map[string]*fileProgress),
		onProgress:   onProgress,
	}
	m.log = output.GetLogger("manager").With().Str("run", m.runID.String()).Logger()

	client, err := mzhttp.NewClient(settings.HTTPConfig(output.GetLogger("http")))
	if err != nil {
		return nil, err
	}

	var hook myzuka.PageHook
	if settings.Debug >= 2 {
		hook = m.dumpPage
	}
	m.site = myzuka.NewSite(client, settings.ToPathConfig(), hook, output.GetLogger("myzuka"))

	fetchOpts := settings.FetchOptions(output.GetLogger("fetch"))
	fetchOpts.OnProgress = m.trackBytes
	fetcher := fetch.NewFetcher(client, fetchOpts)

	m.coordinator = NewCoordinator(siteResolver{site: m.site}, fetcher, CoordinatorOptions{
		Retry:     settings.TaskRetry(),
		OnAttempt: m.reportAttempt,
		Logger:    output.GetLogger("coordinator"),
	})

	return m, nil
}

// Initialize fetches album info from the input URLs, one per line. Artist
// pages expand to every album they list.
func (m *Manager) Initialize(ctx context.Context, inputURLs string) error {
	urls := m.parseInputURLs(inputURLs)
	for _, u := range urls {
		if !myzuka.IsAlbumURL(u) && !myzuka.IsArtistURL(u) {
			return fmt.Errorf("%w: %s", ErrUnsupportedURL, u)
		}
	}

	var sources []*source
	var totalFiles int32
	for _, inputURL := range urls {
		src := &source{url: inputURL, artist: myzuka.IsArtistURL(inputURL)}

		albumURLs := []string{inputURL}
		if src.artist {
			var err error
			albumURLs, err = m.site.AlbumURLs(ctx, inputURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error getting albums from %s: %v", inputURL, err), Level: LevelError})
				continue
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("You are going to download the whole discography of this artist (%d albums)", len(albumURLs)), Level: LevelWarning})
		}

		// Fetch album info
		for _, albumURL := range albumURLs {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching album info: %s", albumURL), Level: LevelVerbose})

			album, err := m.site.Album(ctx, albumURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching %s: %v", albumURL, err), Level: LevelError})
				continue
			}

			src.albums = append(src.albums, album)
			totalFiles += int32(len(album.Tracks))
			if album.HasCover() {
				totalFiles++
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Found album: %s", album), Level: LevelInfo})
		}

		if len(src.albums) > 0 {
			sources = append(sources, src)
		}
	}

	if len(sources) == 0 {
		return ErrNothingToDownload
	}

	m.mu.Lock()
	m.sources = append(m.sources, sources...)
	m.mu.Unlock()
	atomic.AddInt32(&m.totalFiles, totalFiles)

	return nil
}

// StartDownloads downloads all initialized albums one after the other.
// Files inside an album are fetched concurrently. A directory that cannot
// be created halts the run.
func (m *Manager) StartDownloads(ctx context.Context) error {
	m.mu.RLock()
	sources := m.sources
	m.mu.RUnlock()

	for _, src := range sources {
		for _, album := range src.albums {
			if err := m.downloadAlbum(ctx, album); err != nil {
				return err
			}
		}
		if src.artist {
			m.progress(ProgressEvent{Message: MsgArtistFinished, Level: LevelSuccess})
		}
	}
	return nil
}

// GetProgress returns current download progress. The byte total grows as
// file sizes are learned from the server.
func (m *Manager) GetProgress() (received, total int64, filesReceived, filesTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes), atomic.LoadInt64(&m.totalBytes),
		atomic.LoadInt32(&m.downloadedFiles), atomic.LoadInt32(&m.totalFiles)
}

// GetAlbumNames returns the names of all initialized albums.
func (m *Manager) GetAlbumNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for _, src := range m.sources {
		for _, album := range src.albums {
			names = append(names, album.String())
		}
	}
	return names
}

func (m *Manager) parseInputURLs(input string) []string {
	lines := strings.Split(input, "\n")
	var urls []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

func (m *Manager) downloadAlbum(ctx context.Context, album *model.Album) error {
	if err := ioutils.EnsureDir(album.Path); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
		return err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %s into %s", album, album.Path), Level: LevelInfo})

	var tasks []Task
	if album.HasCover() {
		tasks = append(tasks, NewTask(KindCover, 0, album.CoverURL, album.Path, filepath.Base(album.CoverPath)))
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("No cover found for %s", album), Level: LevelWarning})
	}
	tracks := make(map[uuid.UUID]*model.Track, len(album.Tracks))
	for _, track := range album.Tracks {
		task := NewTask(KindSong, track.Number, track.PageURL, album.Path, track.FallbackFileName())
		tracks[task.ID] = track
		tasks = append(tasks, task)
	}

	summary, err := m.coordinator.Run(ctx, tasks, m.settings.Concurrency)
	if err != nil {
		return err
	}

	for _, r := range summary.Reports {
		if r.Status == StatusAbandoned {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Could not download %s: %v", r.Task, r.Err), Level: LevelError})
		}
	}
	for _, absent := range album.Absent {
		m.progress(ProgressEvent{Message: myzuka.FormatAbsent(absent), Level: LevelWarning})
	}

	var entries []audio.Entry
	var coverDone bool
	for _, r := range summary.Succeeded() {
		switch r.Task.Kind {
		case KindCover:
			coverDone = true
		case KindSong:
			entries = append(entries, m.inspect(r, tracks[r.Task.ID]))
		}
	}

	if m.settings.CreatePlaylist && len(entries) > 0 {
		m.writePlaylist(ctx, album, entries)
	}
	if m.settings.CreateThumbnail && coverDone {
		dst := filepath.Join(album.Path, m.settings.ThumbnailFileName)
		if err := m.imageService.MakeThumbnail(ctx, album.CoverPath, dst, m.settings.ThumbnailMaxSize); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating thumbnail: %v", err), Level: LevelWarning})
		}
	}

	if summary.Complete() && len(album.Absent) == 0 && len(album.Tracks) > 0 {
		m.progress(ProgressEvent{Message: MsgAlbumFinished, Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{Message: MsgAlbumIncomplete, Level: LevelWarning})
	}
	return nil
}

// inspect reads back a finished song for verbose output and its playlist
// entry.
func (m *Manager) inspect(r Report, track *model.Track) audio.Entry {
	entry := audio.Entry{
		FileName: filepath.Base(r.Target.Path),
		Number:   r.Task.Ordinal,
	}
	if track != nil {
		entry.Title = track.Title
	}

	info, err := m.inspector.Inspect(r.Target.Path)
	switch {
	case err != nil:
		m.log.Debug().Err(err).Str("path", r.Target.Path).Msg("cannot inspect file")
	case info.LooksLikeHTML:
		m.progress(ProgressEvent{Message: fmt.Sprintf("%s looks like a web page, not audio", entry.FileName), Level: LevelWarning})
	case info.HasTag:
		if info.Title != "" {
			entry.Title = info.Title
		}
		entry.Duration = info.Duration
		m.progress(ProgressEvent{Message: fmt.Sprintf("%s: %s - %s", entry.FileName, info.Artist, info.Title), Level: LevelVerbose})
	}
	return entry
}

func (m *Manager) writePlaylist(ctx context.Context, album *model.Album, entries []audio.Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })

	content := m.playlist.CreatePlaylist(album, entries)
	if err := ioutils.WriteFile(ctx, album.PlaylistPath, []byte(content)); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist for %s", album.Title), Level: LevelSuccess})
}

// reportAttempt turns coordinator attempts into status lines.
func (m *Manager) reportAttempt(a Attempt) {
	if errors.Is(a.Err, context.Canceled) {
		return
	}
	if a.State == nil {
		if a.Err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Problem detected while downloading %s: %v", a.Task, a.Err), Level: LevelWarning})
		}
		return
	}

	name := filepath.Base(a.Target.Path)
	line := output.FileStatus(name, a.State.FinalSize, a.State.ReportedTotal)
	switch a.State.Outcome {
	case fetch.Complete:
		atomic.AddInt32(&m.downloadedFiles, 1)
		m.progress(ProgressEvent{Message: line, Level: LevelSuccess})
	case fetch.Skipped:
		atomic.AddInt32(&m.downloadedFiles, 1)
		m.markSkipped(a.Target.Path, a.State.FinalSize)
		m.progress(ProgressEvent{Message: line + suffixSkipped, Level: LevelInfo})
	case fetch.SizeUnknown:
		atomic.AddInt32(&m.downloadedFiles, 1)
		m.progress(ProgressEvent{Message: line + suffixUnverified, Level: LevelWarning})
	case fetch.Incomplete:
		m.progress(ProgressEvent{Message: line + suffixIncomplete, Level: LevelWarning})
	default:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Problem detected while downloading %s: %v", name, a.Err), Level: LevelWarning})
	}
}

// trackBytes is the fetcher progress callback. written is the file length
// so far, which drops back when a transfer restarts from zero.
func (m *Manager) trackBytes(path string, written, total int64) {
	m.mu.Lock()
	fp, ok := m.files[path]
	if !ok {
		fp = &fileProgress{}
		m.files[path] = fp
	}
	dWritten := written - fp.written
	fp.written = written
	var dTotal int64
	if total > 0 && total != fp.total {
		dTotal = total - fp.total
		fp.total = total
	}
	m.mu.Unlock()

	atomic.AddInt64(&m.receivedBytes, dWritten)
	atomic.AddInt64(&m.totalBytes, dTotal)
}

// markSkipped counts a file that was already on disk.
func (m *Manager) markSkipped(path string, size int64) {
	m.trackBytes(path, size, size)
}

func (m *Manager) dumpPage(step, url, content string) {
	path, err := ioutils.DumpPage(".", step, content, time.Now())
	if err != nil {
		m.log.Warn().Err(err).Str("url", url).Msg("cannot dump page")
		return
	}
	m.log.Trace().Str("url", url).Str("file", path).Msg("page dumped")
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress == nil {
		return
	}
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.onProgress(event)
}

// siteResolver resolves song tasks by scraping their page. Covers are
// fetched from their URL as-is.
type siteResolver struct {
	site *myzuka.Site
}

func (r siteResolver) Resolve(ctx context.Context, task Task) (Target, error) {
	if task.Kind == KindCover {
		return Target{URL: task.SourceURL, Path: filepath.Join(task.Dir, task.FileName)}, nil
	}
	file, err := r.site.ResolveSong(ctx, task.SourceURL, task.Ordinal)
	if err != nil {
		return Target{}, err
	}
	return Target{URL: file.URL, Path: filepath.Join(task.Dir, file.Name)}, nil
}
