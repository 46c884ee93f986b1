package engine

import "fmt"

// TransportError reports a retrieval failure: the stream could not be
// opened or read, or the delivered bytes did not match the manifest's
// size or checksum. The destination is left untouched.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transfer of %s failed: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SecurityError reports a signature failure: a required signature is
// absent or does not verify against the configured keyring. The
// offending artifact is never moved into place.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security check of %s failed: %s", e.Path, e.Reason)
}

// ObserverError reports that a listener aborted the run.
type ObserverError struct {
	Err error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("observer aborted update: %v", e.Err)
}

func (e *ObserverError) Unwrap() error { return e.Err }
