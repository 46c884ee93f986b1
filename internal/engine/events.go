package engine

import "github.com/updraft-sh/updraft/internal/manifest"

// StaleReason says why a file needs to be downloaded.
type StaleReason string

const (
	ReasonMissing  StaleReason = "missing"
	ReasonSize     StaleReason = "size"
	ReasonChecksum StaleReason = "checksum"
)

// Event is a notification emitted by an update run. Events arrive in a
// fixed order: CheckStarted, one FileChecked per eligible file,
// DownloadStarted (when anything is stale), interleaved FileProgress and
// FileVerified per stale file, then exactly one of Succeeded, Failed, or
// Stopped.
type Event interface {
	isEvent()
}

// CheckStarted opens a run. Total counts the files eligible on this
// platform.
type CheckStarted struct {
	Total int
}

// FileChecked reports the freshness of one file. Fraction is the
// byte-weighted share of declared bytes inspected so far, in [0, 1].
type FileChecked struct {
	Record   *manifest.FileRecord
	Stale    bool
	Reason   StaleReason // set when Stale
	Fraction float64
}

// DownloadStarted reports the work ahead: how many files are stale and
// how many bytes they total.
type DownloadStarted struct {
	Files      int
	TotalBytes int64
}

// FileProgress reports transfer progress. Fraction is the byte-weighted
// completion of the whole run, in [0, 1].
type FileProgress struct {
	Record   *manifest.FileRecord
	Received int64
	Fraction float64
}

// FileVerified fires after a file's size, checksum, and signature have
// all checked out.
type FileVerified struct {
	Record *manifest.FileRecord
}

// Succeeded closes a successful run. TxnPath is set for staged runs.
type Succeeded struct {
	Updated int
	TxnPath string
}

// Failed closes a failed run with the causing error.
type Failed struct {
	Err error
}

// Stopped closes a run cancelled through its context.
type Stopped struct{}

func (CheckStarted) isEvent()    {}
func (FileChecked) isEvent()     {}
func (DownloadStarted) isEvent() {}
func (FileProgress) isEvent()    {}
func (FileVerified) isEvent()    {}
func (Succeeded) isEvent()       {}
func (Failed) isEvent()          {}
func (Stopped) isEvent()         {}

// Listener observes update runs. Returning a non-nil error aborts the
// run; the engine cleans up and reports an ObserverError.
type Listener interface {
	OnEvent(ev Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event) error

func (f ListenerFunc) OnEvent(ev Event) error { return f(ev) }
