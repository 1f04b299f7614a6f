// Package scanner implements the single-instance background scan
// pipeline: discovering audio files under the configured media roots,
// parsing and upserting their tags into the catalog, reconciling
// orphaned rows, recomputing preferred artwork, and publishing
// progress over the event bus.
package scanner

import (
	"time"
)

// State is the scanner's coarse lifecycle state.
type State int

const (
	NotScheduled State = iota
	Scheduled
	Running
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	default:
		return "not_scheduled"
	}
}

// ErrorKind classifies one entry in a scan's bounded per-scan error
// log.
type ErrorKind int

const (
	NoAudioTrackFound ErrorKind = iota
	IOScanError
	AudioFileScanError
	EmbeddedImageScanError
	BadAudioDurationError
)

func (k ErrorKind) String() string {
	switch k {
	case NoAudioTrackFound:
		return "NoAudioTrackFound"
	case IOScanError:
		return "IOScanError"
	case AudioFileScanError:
		return "AudioFileScanError"
	case EmbeddedImageScanError:
		return "EmbeddedImageScanError"
	case BadAudioDurationError:
		return "BadAudioDurationError"
	default:
		return "UnknownScanError"
	}
}

// ScanError is one bounded-log entry.
type ScanError struct {
	Kind  ErrorKind
	Path  string
	Index int
	Cause error
}

func (e ScanError) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Path + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Path
}

// maxErrorLogSize bounds the per-scan error log so a library full of
// broken files cannot exhaust memory.
const maxErrorLogSize = 1000

// Stats is the snapshot published at scanComplete and retained as
// lastCompleteStats until the next scan.
type Stats struct {
	FilesScanned    int
	Added           int
	Updated         int
	Removed         int
	ErrorsByKind    map[string]int
	DurationPerStep map[string]time.Duration
	StartedAt       time.Time
	FinishedAt      time.Time
}

func newStats() *Stats {
	return &Stats{
		ErrorsByKind:    map[string]int{},
		DurationPerStep: map[string]time.Duration{},
	}
}

// StepStats is the in-flight progress snapshot for the currently
// running step, throttled onto the event bus.
type StepStats struct {
	StepName     string
	FilesScanned int
	Added        int
	Updated      int
	Removed      int
}

// Status is the external snapshot returned by Service.Status.
type Status struct {
	State             State
	LastCompleteStats *Stats
	CurrentStepStats  *StepStats
	NextScheduledScan *time.Time
}

// Recommender is the out-of-scope external collaborator that rebuilds
// similarity indexes after a scan. Errors from Reload never fail the
// scan; they are only logged.
type Recommender interface {
	Reload() error
}

// NoopRecommender satisfies Recommender when no real engine is wired.
type NoopRecommender struct{}

func (NoopRecommender) Reload() error { return nil }
