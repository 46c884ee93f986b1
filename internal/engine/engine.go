// Package engine runs manifest-driven update transactions: it compares
// installed files against a manifest, downloads what is stale, verifies
// every artifact, and moves verified artifacts into place. Installs are
// either immediate or staged behind a transaction record that a later
// finalize completes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // ProtonMail's maintained fork

	"github.com/updraft-sh/updraft/internal/fingerprint"
	"github.com/updraft-sh/updraft/internal/manifest"
	"github.com/updraft-sh/updraft/internal/platform"
	"github.com/updraft-sh/updraft/internal/transaction"
)

const (
	// tempSuffix marks in-flight downloads next to their destinations.
	tempSuffix = ".updtmp"
	// defaultCopyBuffer is the transfer chunk size.
	defaultCopyBuffer = 64 * 1024
)

// Config assembles an update engine.
type Config struct {
	// Platform selects which manifest entries apply. Required.
	Platform *platform.Info

	// Opener retrieves artifact bytes. Defaults to NewHTTPOpener.
	Opener StreamOpener

	// Listener observes the run. Optional.
	Listener Listener

	// Keyring holds the trusted signing keys. When set, every
	// downloaded file must carry a signature that verifies against it.
	Keyring openpgp.EntityList

	// Logger receives structured diagnostics. Defaults to a no-op.
	Logger Logger

	// StagingDir is where staged runs write their transaction records.
	// Defaults to an .updraft directory under the manifest base path.
	StagingDir string

	// CopyBufferSize overrides the transfer chunk size.
	CopyBufferSize int
}

// Engine checks and applies manifest updates.
type Engine struct {
	platform *platform.Info
	opener   StreamOpener
	listener Listener
	keyring  openpgp.EntityList
	logger   Logger
	staging  string
	bufSize  int
}

// New creates an engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Platform == nil {
		return nil, fmt.Errorf("engine: platform is required")
	}
	e := &Engine{
		platform: cfg.Platform,
		opener:   cfg.Opener,
		listener: cfg.Listener,
		keyring:  cfg.Keyring,
		logger:   cfg.Logger,
		staging:  cfg.StagingDir,
		bufSize:  cfg.CopyBufferSize,
	}
	if e.opener == nil {
		e.opener = NewHTTPOpener()
	}
	if e.logger == nil {
		e.logger = defaultLogger()
	}
	if e.bufSize <= 0 {
		e.bufSize = defaultCopyBuffer
	}
	return e, nil
}

// StaleFile is one file the check phase found out of date.
type StaleFile struct {
	Record *manifest.FileRecord
	Reason StaleReason
}

// Result summarizes a completed run.
type Result struct {
	// Updated counts the files downloaded and verified.
	Updated int
	// Fresh counts the files that were already up to date.
	Fresh int
	// TxnPath is the staged transaction record, set only for staged runs
	// that updated something.
	TxnPath string
}

// Check compares installed files against the manifest without emitting
// events or downloading anything.
func (e *Engine) Check(ctx context.Context, m *manifest.Manifest) ([]StaleFile, error) {
	files := m.FilesFor(e.platform)
	var stale []StaleFile
	for i := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &files[i]
		fresh, reason, err := e.checkFile(m, rec)
		if err != nil {
			return nil, err
		}
		if !fresh {
			stale = append(stale, StaleFile{Record: rec, Reason: reason})
		}
	}
	return stale, nil
}

// checkFile reports whether the installed copy of rec is current.
// Cheap tests run first: a missing file or a size mismatch skips the
// full read.
func (e *Engine) checkFile(m *manifest.Manifest, rec *manifest.FileRecord) (bool, StaleReason, error) {
	dest := m.AbsPath(rec)

	info, err := os.Stat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, ReasonMissing, nil
		}
		return false, "", fmt.Errorf("stat %s: %w", dest, err)
	}
	if info.Size() != rec.Size {
		return false, ReasonSize, nil
	}

	sum, _, err := fingerprint.ChecksumFile(dest)
	if err != nil {
		return false, "", fmt.Errorf("checksum %s: %w", dest, err)
	}
	if sum != rec.Checksum {
		return false, ReasonChecksum, nil
	}
	return true, "", nil
}

// Update runs a full check-download-verify-install pass and installs
// each verified file immediately.
func (e *Engine) Update(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	return e.run(ctx, m, false)
}

// Stage runs the same pass but leaves verified files beside their
// destinations and records the pending moves in a transaction. Finalize
// completes the install; Abandon rolls it back.
func (e *Engine) Stage(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	return e.run(ctx, m, true)
}

func (e *Engine) run(ctx context.Context, m *manifest.Manifest, staged bool) (*Result, error) {
	res, err := e.runInner(ctx, m, staged)
	if err != nil {
		// The closing event mirrors the error; a listener failing at
		// this point has nothing left to abort.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.emitFinal(Stopped{})
		} else {
			e.emitFinal(Failed{Err: err})
		}
		return nil, err
	}
	return res, nil
}

func (e *Engine) runInner(ctx context.Context, m *manifest.Manifest, staged bool) (*Result, error) {
	files := m.FilesFor(e.platform)

	if err := e.emit(CheckStarted{Total: len(files)}); err != nil {
		return nil, err
	}

	var declaredBytes int64
	for i := range files {
		declaredBytes += files[i].Size
	}

	var stale []StaleFile
	var inspected int64
	for i := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &files[i]
		fresh, reason, err := e.checkFile(m, rec)
		if err != nil {
			return nil, err
		}
		if !fresh {
			stale = append(stale, StaleFile{Record: rec, Reason: reason})
		}
		inspected += rec.Size
		fraction := 1.0
		if declaredBytes > 0 {
			fraction = float64(inspected) / float64(declaredBytes)
		}
		if err := e.emit(FileChecked{Record: rec, Stale: !fresh, Reason: reason, Fraction: fraction}); err != nil {
			return nil, err
		}
	}

	result := &Result{Fresh: len(files) - len(stale)}
	if len(stale) == 0 {
		e.logger.Info("all files up to date", "files", len(files))
		e.emitFinal(Succeeded{})
		return result, nil
	}

	var totalBytes int64
	for _, s := range stale {
		totalBytes += s.Record.Size
	}
	if err := e.emit(DownloadStarted{Files: len(stale), TotalBytes: totalBytes}); err != nil {
		return nil, err
	}
	e.logger.Info("downloading stale files", "files", len(stale), "bytes", totalBytes)

	var (
		entries  []transaction.Entry
		updated  int
		received int64
	)
	// Only staged temps are discarded on failure. Files a direct install
	// already promoted this run stay in place.
	fail := func(err error) (*Result, error) {
		for _, entry := range entries {
			os.Remove(entry.TempPath)
		}
		return nil, err
	}

	for i, s := range stale {
		tempPath, err := e.fetchOne(ctx, m, s.Record, i, totalBytes, &received)
		if err != nil {
			return fail(err)
		}
		if err := e.emit(FileVerified{Record: s.Record}); err != nil {
			os.Remove(tempPath)
			return fail(err)
		}
		if staged {
			entries = append(entries, transaction.Entry{
				TempPath:   tempPath,
				DestPath:   m.AbsPath(s.Record),
				Executable: s.Record.Flags.Executable,
				Unpack:     s.Record.Flags.Unpack,
			})
			continue
		}
		if err := installEntry(tempPath, m.AbsPath(s.Record), s.Record.Flags.Executable, s.Record.Flags.Unpack); err != nil {
			os.Remove(tempPath)
			return fail(err)
		}
		updated++
	}

	if staged {
		dir := e.staging
		if dir == "" {
			dir = filepath.Join(m.BasePath, ".updraft")
		}
		txnPath, err := transaction.New(entries).Save(dir)
		if err != nil {
			return fail(fmt.Errorf("save transaction: %w", err))
		}
		result.TxnPath = txnPath
		updated = len(entries)
	}

	result.Updated = updated
	e.logger.Info("update complete", "updated", result.Updated, "staged", staged)
	// Closing events cannot abort anything, so listener errors on them
	// are ignored.
	e.emitFinal(Succeeded{Updated: result.Updated, TxnPath: result.TxnPath})
	return result, nil
}

// fetchOne downloads and verifies a single record into a temp file next
// to its destination, returning the temp path. The running received
// counter feeds byte-weighted progress. idx keeps temp names distinct
// when overlapping filters let two records share a destination.
func (e *Engine) fetchOne(ctx context.Context, m *manifest.Manifest, rec *manifest.FileRecord, idx int, totalBytes int64, received *int64) (string, error) {
	dest := m.AbsPath(rec)
	source := m.SourceURL(rec)
	e.logger.Debug("fetching", "source", source, "dest", dest)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}

	stream, err := e.opener.Open(ctx, source)
	if err != nil {
		return "", &TransportError{Path: rec.Path, Err: err}
	}
	defer stream.Close()

	tempPath := fmt.Sprintf("%s.%d%s", dest, idx, tempSuffix)
	tmpFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tempPath)
		}
	}()

	digest := fingerprint.NewDigest()
	buf := make([]byte, e.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("write temp file: %w", err)
			}
			digest.Write(buf[:n])
			*received += int64(n)
			fraction := 1.0
			if totalBytes > 0 {
				fraction = float64(*received) / float64(totalBytes)
			}
			// An over-delivering stream fails the size check later;
			// progress never reports past complete.
			if fraction > 1 {
				fraction = 1
			}
			if err := e.emit(FileProgress{Record: rec, Received: digest.Size(), Fraction: fraction}); err != nil {
				return "", err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", &TransportError{Path: rec.Path, Err: readErr}
		}
	}

	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if digest.Size() != rec.Size {
		return "", &TransportError{Path: rec.Path,
			Err: fmt.Errorf("size mismatch: got %d bytes, manifest says %d", digest.Size(), rec.Size)}
	}
	if sum := digest.Sum(); sum != rec.Checksum {
		return "", &TransportError{Path: rec.Path,
			Err: fmt.Errorf("checksum mismatch: got %s, manifest says %s", sum, rec.Checksum)}
	}

	if e.keyring != nil {
		if !rec.Signed() {
			return "", &SecurityError{Path: rec.Path, Reason: "no signature in manifest"}
		}
		if err := fingerprint.VerifyFile(tempPath, rec.Signature, e.keyring); err != nil {
			return "", &SecurityError{Path: rec.Path, Reason: err.Error()}
		}
	}

	cleanupNeeded = false
	return tempPath, nil
}

// emit delivers an event to the listener. A listener error aborts the
// run as an ObserverError.
func (e *Engine) emit(ev Event) error {
	if e.listener == nil {
		return nil
	}
	if err := e.listener.OnEvent(ev); err != nil {
		return &ObserverError{Err: err}
	}
	return nil
}

// emitFinal delivers a closing event, ignoring listener errors.
func (e *Engine) emitFinal(ev Event) {
	if e.listener != nil {
		e.listener.OnEvent(ev) //nolint:errcheck
	}
}
