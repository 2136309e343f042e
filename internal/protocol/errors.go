package protocol

import (
	"errors"
	"fmt"
)

const (
	// Registry / routing.
	ErrUnknownProtocol = "E_UNKNOWN_PROTOCOL"

	// Translation failures caused by data (recoverable).
	ErrNotRepresentable  = "E_NOT_REPRESENTABLE"
	ErrBadNetworkID      = "E_BAD_NETWORK_ID"
	ErrBadBlockRuntimeID = "E_BAD_BLOCK_RUNTIME_ID"
	ErrBadItemData       = "E_BAD_ITEM_DATA"
	ErrEncodeFailed      = "E_ENCODE_FAILED"
	ErrInternal          = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrUnknownProtocol:   {},
	ErrNotRepresentable:  {},
	ErrBadNetworkID:      {},
	ErrBadBlockRuntimeID: {},
	ErrBadItemData:       {},
	ErrEncodeFailed:      {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// TranslationError is an expected, recoverable failure: the data cannot be
// represented on (or was not valid for) a given protocol. Callers decide
// whether to drop the action, substitute a default or drop the session.
type TranslationError struct {
	Code string
	Msg  string
	Err  error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return e.Code + ": " + e.Msg
}

func (e *TranslationError) Unwrap() error { return e.Err }

func Errorf(code, format string, args ...any) error {
	return &TranslationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code, format string, args ...any) error {
	return &TranslationError{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the outermost TranslationError in err's chain,
// or "" if there is none.
func CodeOf(err error) string {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// InvariantError is the panic value for internal-invariant violations. These
// signal a programming error (a dictionary or dispatch gap) and are never
// recovered on the caller's goroutine.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "assumption failed: " + e.Msg }

// AssumptionFailed panics with an *InvariantError.
func AssumptionFailed(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
