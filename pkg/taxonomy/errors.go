// Package taxonomy expresses the error-kind tagged sum every layer of
// thoughtflow returns instead of ad-hoc error strings. A Kind is a stable,
// dot-namespaced string ("transient/timeout", "permanent/unknown_user", ...)
// that downstream branching (broker retry, DLQ, UI messaging) switches on.
package taxonomy

import (
	"errors"
	"fmt"
)

// Kind tags an Error with the namespace the rest of the system branches on.
type Kind string

// Transient kinds are retried by the layer that observed them; if the
// layer's own retry budget is exhausted they bubble up unresolved.
const (
	KindNetwork         Kind = "transient/network"
	KindTimeout         Kind = "transient/timeout"
	KindRateLimited     Kind = "transient/rate_limited"
	KindInProgress      Kind = "transient/in_progress"
	KindValidationRetry Kind = "transient/validation_retry"
)

// Permanent kinds are never retried; they terminate the thought as failed
// and (except KindStuck, which the sweeper produces itself) route to the DLQ.
const (
	KindUnknownUser    Kind = "permanent/unknown_user"
	KindInvalidPayload Kind = "permanent/invalid_payload"
	KindQuotaExhausted Kind = "permanent/quota_exhausted"
	KindContentPolicy  Kind = "permanent/content_policy"
	KindInvariant      Kind = "permanent/invariant"
	KindStuck          Kind = "permanent/stuck"
)

// Cache kinds are always swallowed by the semantic cache and downgraded to
// a miss; they must never escape pkg/semanticcache.
const (
	KindCacheUnavailable Kind = "cache/unavailable"
	KindCacheCorrupt     Kind = "cache/corrupt"
)

// IsTransient reports whether a Kind belongs to the transient/ namespace.
func (k Kind) IsTransient() bool {
	return len(k) >= len("transient/") && k[:len("transient/")] == "transient/"
}

// IsPermanent reports whether a Kind belongs to the permanent/ namespace.
func (k Kind) IsPermanent() bool {
	return len(k) >= len("permanent/") && k[:len("permanent/")] == "permanent/"
}

// IsCache reports whether a Kind belongs to the cache/ namespace.
func (k Kind) IsCache() bool {
	return len(k) >= len("cache/") && k[:len("cache/")] == "cache/"
}

// Error wraps an underlying error with the Kind that determines how the
// caller should react. It is errors.Is/errors.As compatible: errors.Is(err,
// taxonomy.KindTimeout) works via the Kind value itself being comparable,
// and callers should prefer taxonomy.KindOf(err) over type assertion.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error tagging an existing error with a Kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err if it is (or wraps) a *taxonomy.Error,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
