package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured   = errors.New("device address not configured")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrCycleIncomplete = errors.New("invalid cycle (ON and OFF must be > 0), not applied")
)

// TransportError covers network failures, timeouts, non-2xx answers and
// undecodable bodies from the device.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ImportError reports a malformed CSV row. Line is 1-based and counts the
// header.
type ImportError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("csv line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csv line %d, column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindNotConfigured ErrorKind = "not_configured"
	KindTransport     ErrorKind = "transport"
	KindValidation    ErrorKind = "validation"
	KindImport        ErrorKind = "import"
	KindIO            ErrorKind = "io"
	KindUnknown       ErrorKind = "unknown"
)

// KindOf classifies err for display. Import errors are checked before IO
// errors since an import can fail for either reason.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		transportErr  *TransportError
		validationErr *ValidationError
		importErr     *ImportError
		ioErr         *IOError
	)

	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.As(err, &validationErr), errors.Is(err, ErrCycleIncomplete):
		return KindValidation
	case errors.As(err, &importErr):
		return KindImport
	case errors.As(err, &ioErr):
		return KindIO
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindUnknown
	}
}
