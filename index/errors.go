package index

import (
	"github.com/cockroachdb/errors"
)

// Kind tags the handful of control-flow-relevant failures this package
// raises itself, as opposed to buffer-manager/disk errors that are simply
// wrapped and propagated unchanged.
type Kind int

const (
	KindNone Kind = iota
	BadIndexInfo
	BadOpcodes
	BadScanrange
	NoSuchKeyFound
	ScanNotInitialized
	IndexScanCompleted
)

func (k Kind) String() string {
	switch k {
	case BadIndexInfo:
		return "BadIndexInfo"
	case BadOpcodes:
		return "BadOpcodes"
	case BadScanrange:
		return "BadScanrange"
	case NoSuchKeyFound:
		return "NoSuchKeyFound"
	case ScanNotInitialized:
		return "ScanNotInitialized"
	case IndexScanCompleted:
		return "IndexScanCompleted"
	default:
		return "None"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

// fail builds a typed, stack-carrying error of the given kind.
func fail(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&kindError{kind: kind, msg: errors.Newf(format, args...).Error()})
}

// KindOf extracts the Kind carried by err, or KindNone if err was not
// raised by this package (including nil).
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindNone
}

// Is reports whether err carries the given kind — a shorthand for
// KindOf(err) == kind, for callers that only want a yes/no answer.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
