// Package apperror classifies failures so callers can decide between retrying, skipping and
// aborting without inspecting error strings.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransient covers network hiccups and 5xx responses; retry with backoff.
	KindTransient
	// KindRateLimited is a throttling response; retry after backoff.
	KindRateLimited
	// KindMalformedInput is a single bad record or response body; skip and continue.
	KindMalformedInput
	// KindAuth is a credential or permission failure; abort the run.
	KindAuth
	// KindRejected is a terminal refusal for one message, e.g. content policy.
	KindRejected
	// KindDuplicate is a unique-key violation in the ledger; treated as success.
	KindDuplicate
	// KindExhaustedRetries means every attempt failed with a retryable kind.
	KindExhaustedRetries
	// KindAmbiguous means the remote side may or may not have applied the request.
	KindAmbiguous
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindTransient:        "transient",
	KindRateLimited:      "rate_limited",
	KindMalformedInput:   "malformed_input",
	KindAuth:             "auth",
	KindRejected:         "rejected",
	KindDuplicate:        "duplicate",
	KindExhaustedRetries: "exhausted_retries",
	KindAmbiguous:        "ambiguous",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error attaches a Kind and the failing operation to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperror.Auth) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	Transient        = &Error{Kind: KindTransient}
	RateLimited      = &Error{Kind: KindRateLimited}
	MalformedInput   = &Error{Kind: KindMalformedInput}
	Auth             = &Error{Kind: KindAuth}
	Rejected         = &Error{Kind: KindRejected}
	Duplicate        = &Error{Kind: KindDuplicate}
	ExhaustedRetries = &Error{Kind: KindExhaustedRetries}
	Ambiguous        = &Error{Kind: KindAmbiguous}
)

// New wraps err with kind and op. A nil err still produces a non-nil *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error from a format string.
func Errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindRateLimited:
		return true
	default:
		return false
	}
}
