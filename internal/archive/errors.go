package archive

import (
	"errors"
)

// Kind is the closed set of failures reported to callers.
type Kind string

const (
	KindContentFetchFailed   Kind = "ContentFetchFailed"
	KindContentUploadFailed  Kind = "ContentUploadFailed"
	KindInvalidConfiguration Kind = "InvalidConfiguration"
)

// Error is a pipeline failure tagged with the kind reported to the caller.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the reported kind from err.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

var (
	// ErrInvalidKey is returned by ValidateKey.
	ErrInvalidKey = errors.New("invalid object key")
	// ErrLedgerDisabled is returned when listing without a configured ledger.
	ErrLedgerDisabled = errors.New("archive ledger is not configured")
)
