package engine

import "fmt"

// ValidationError reports a precondition failure detected before any
// snapshot or volume resource is acquired. No cleanup is needed when one
// is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// SnapshotError reports a snapshot lifecycle failure. A create failure
// aborts the transfer; a remove failure is carried on the summary so it
// cannot mask an otherwise-successful result.
type SnapshotError struct {
	Op  string // "create", "map" or "remove"
	Err error
}

func (e *SnapshotError) Error() string { return fmt.Sprintf("snapshot %s: %v", e.Op, e.Err) }
func (e *SnapshotError) Unwrap() error { return e.Err }

// ExtentQueryError reports that the extent-map primitive failed for a
// reason other than pagination or end-of-map.
type ExtentQueryError struct {
	Err error
}

func (e *ExtentQueryError) Error() string { return "enumerate extents: " + e.Err.Error() }
func (e *ExtentQueryError) Unwrap() error { return e.Err }

// IOError reports a failed or truncated read/write during the transfer.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// VerifyError reports a digest mismatch between the finished destination
// and the live source. The transfer itself completed; with a snapshot in
// use the mismatch may mean the source changed after the freeze.
type VerifyError struct {
	Path         string
	SourceDigest string
	DestDigest   string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s: digest mismatch (source %.16s..., destination %.16s...)",
		e.Path, e.SourceDigest, e.DestDigest)
}
