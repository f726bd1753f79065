package sink

import "errors"

// ErrBusy is returned by BeginProcessing when the thought is already
// processing within the grace window; the orchestrator maps this to
// transient_fail(in_progress) [orig §4.7].
var ErrBusy = errors.New("thought is already processing")

// ErrIncompleteStages is returned by Complete when not all five stage
// fields are non-null; the orchestrator maps this to
// permanent_fail(invariant) [orig §4.7].
var ErrIncompleteStages = errors.New("thought has incomplete stage outputs")
