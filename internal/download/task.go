package download

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/handiism/myzuka-downloader/internal/fetch"
)

// TaskKind tells the resolver how to find a task's file.
type TaskKind int

const (
	// KindSong tasks point at a song page that has to be scraped for the
	// actual file location.
	KindSong TaskKind = iota
	// KindCover tasks point directly at an image.
	KindCover
)

func (k TaskKind) String() string {
	switch k {
	case KindSong:
		return "song"
	case KindCover:
		return "cover"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Task is one file to retrieve. Tasks are immutable once created.
type Task struct {
	ID      uuid.UUID
	Kind    TaskKind
	Ordinal int

	// SourceURL is the song page for songs and the image URL for covers.
	SourceURL string

	// Dir is the album directory the file is saved to.
	Dir string

	// FileName is fixed for covers. Songs learn theirs when resolved.
	FileName string
}

// NewTask creates a task with a fresh ID.
func NewTask(kind TaskKind, ordinal int, sourceURL, dir, fileName string) Task {
	return Task{
		ID:        uuid.New(),
		Kind:      kind,
		Ordinal:   ordinal,
		SourceURL: sourceURL,
		Dir:       dir,
		FileName:  fileName,
	}
}

func (t Task) String() string {
	if t.Kind == KindCover {
		return t.FileName
	}
	return fmt.Sprintf("track %02d", t.Ordinal)
}

// Target is where a resolved task is fetched from and written to.
type Target struct {
	URL  string
	Path string
}

// Status is the terminal state of a task within a Run.
type Status int

const (
	StatusPending Status = iota
	StatusDone
	StatusAbandoned
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	case StatusAbandoned:
		return "abandoned"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Report is the final record of one task.
type Report struct {
	Task     Task
	Target   Target
	State    *fetch.TransferState
	Attempts int
	Status   Status
	Err      error
}

// Attempt is passed to CoordinatorOptions.OnAttempt after every try.
type Attempt struct {
	Task   Task
	Target Target
	Number int
	State  *fetch.TransferState
	Err    error
}

// Summary aggregates the reports of a Run, in task order.
type Summary struct {
	Reports   []Report
	Done      int
	Abandoned int
	Cancelled int
}

// Complete reports whether every task finished successfully.
func (s *Summary) Complete() bool {
	return s.Done == len(s.Reports)
}

// Succeeded returns the reports of finished tasks in task order.
func (s *Summary) Succeeded() []Report {
	var out []Report
	for _, r := range s.Reports {
		if r.Status == StatusDone {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) tally() {
	s.Done, s.Abandoned, s.Cancelled = 0, 0, 0
	for _, r := range s.Reports {
		switch r.Status {
		case StatusDone:
			s.Done++
		case StatusAbandoned:
			s.Abandoned++
		case StatusCancelled, StatusPending:
			s.Cancelled++
		}
	}
}
