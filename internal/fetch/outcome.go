package fetch

import "fmt"

// Outcome classifies a single fetch attempt.
type Outcome int

const (
	Failed Outcome = iota
	Complete
	Skipped
	Incomplete
	SizeUnknown
)

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case Skipped:
		return "skipped"
	case Incomplete:
		return "incomplete"
	case SizeUnknown:
		return "size unknown"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Succeeded reports whether the file can be considered downloaded.
// SizeUnknown is a degraded success: the bytes are kept but unverified.
func (o Outcome) Succeeded() bool {
	return o == Complete || o == Skipped || o == SizeUnknown
}

// TransferState describes one fetch attempt. It is never reused.
type TransferState struct {
	URL  string
	Path string

	// ExistingBytes is the length of the file on disk that the attempt
	// started from, after the placeholder guard was applied.
	ExistingBytes int64

	// ReportedTotal is the declared size of the resource, -1 if unknown.
	ReportedTotal int64

	// SupportsPartial is set when a ranged request was honoured.
	SupportsPartial bool

	// Written counts body bytes written during this attempt.
	Written int64

	// FinalSize is the length of the file when the attempt ended.
	FinalSize int64

	Outcome Outcome
	Err     error
}

func (s *TransferState) fail(err error) *TransferState {
	s.Outcome = Failed
	s.Err = err
	return s
}
