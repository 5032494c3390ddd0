package raid

import "fmt"

// ErrorCode is a closed set of outcomes a Raid operation or callback can
// report. Callbacks always receive either a valid reader with CodeSuccess,
// or a nil reader with a non-success code.
type ErrorCode int

const (
	// CodeSuccess indicates the operation completed normally.
	CodeSuccess ErrorCode = iota

	// CodeInvalidArgument indicates a caller-supplied argument (e.g. a
	// write_arrayf/write_mapf format string) did not match its values.
	CodeInvalidArgument

	// CodeInvalidAddress indicates host/port resolution failed.
	CodeInvalidAddress

	// CodeSocketError indicates the underlying transport could not be
	// created.
	CodeSocketError

	// CodeConnectError indicates the transport could not connect.
	CodeConnectError

	// CodeRecvTimeout indicates a recv call returned with no data within
	// the configured timeout. Non-terminal: drives the per-request
	// timeout sweep.
	CodeRecvTimeout

	// CodeAlreadyConnected indicates Connect was called on an already
	// connected client.
	CodeAlreadyConnected

	// CodeNotConnected indicates the transport is disconnected. Terminal
	// for a connection: the receive loop exits and every pending request
	// is failed with this code.
	CodeNotConnected

	// CodeShutdownError indicates the transport could not be shut down
	// cleanly.
	CodeShutdownError

	// CodeCloseError indicates the transport could not be closed cleanly.
	CodeCloseError

	// CodeCanceled indicates CancelRequest removed the pending request
	// before a response arrived.
	CodeCanceled

	// CodeUnknown is a catch-all for unclassified transport errors.
	CodeUnknown
)

// String returns the human-readable name used by raid_error_to_string in
// the reference implementation.
func (c ErrorCode) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeInvalidAddress:
		return "invalid address"
	case CodeSocketError:
		return "socket error"
	case CodeConnectError:
		return "connect error"
	case CodeRecvTimeout:
		return "recv timeout"
	case CodeAlreadyConnected:
		return "already connected"
	case CodeNotConnected:
		return "not connected"
	case CodeShutdownError:
		return "shutdown error"
	case CodeCloseError:
		return "close error"
	case CodeCanceled:
		return "canceled"
	case CodeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Error wraps an ErrorCode so it can be returned as a Go error while still
// letting callers recover the code via errors.As.
type Error struct {
	Code ErrorCode
	// Cause is the underlying transport/codec error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("raid: %s: %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("raid: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, raid.ErrNotConnected) style comparisons against
// the sentinel *Error values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

// Sentinels for errors.Is comparisons, e.g. errors.Is(err, raid.ErrNotConnected).
var (
	ErrInvalidArgument  = &Error{Code: CodeInvalidArgument}
	ErrInvalidAddress   = &Error{Code: CodeInvalidAddress}
	ErrSocketError      = &Error{Code: CodeSocketError}
	ErrConnectError     = &Error{Code: CodeConnectError}
	ErrRecvTimeout      = &Error{Code: CodeRecvTimeout}
	ErrAlreadyConnected = &Error{Code: CodeAlreadyConnected}
	ErrNotConnected     = &Error{Code: CodeNotConnected}
	ErrShutdownError    = &Error{Code: CodeShutdownError}
	ErrCloseError       = &Error{Code: CodeCloseError}
	ErrCanceled         = &Error{Code: CodeCanceled}
)
