package broker

import "errors"

// ErrProducerDisabled is returned by Submit when the broker feature flag is
// off. Callers treat this the same as a successful submission — the thought
// stays pending for the sweeper (or a batch fallback) to pick up.
var ErrProducerDisabled = errors.New("broker producer disabled; falling back to pending")

// ErrRetriesExhausted is returned by Submit when every attempt failed with a
// transient error and the retry budget ran out.
var ErrRetriesExhausted = errors.New("broker producer retries exhausted")
