package source

import "errors"

// Failure taxonomy for upstream calls. The orchestrator classifies with
// errors.Is and never lets these reach the consumer.
var (
	// ErrQuotaExceeded means the upstream reported its rate quota is spent
	// (or the client is still cooling down from an earlier quota signal).
	// Recoverable by falling back and waiting out the cooldown.
	ErrQuotaExceeded = errors.New("source: quota exceeded")

	// ErrUnreachable means a transport-level failure: DNS, connect, timeout,
	// or a 5xx from the upstream. Usually transient.
	ErrUnreachable = errors.New("source: upstream unreachable")

	// ErrMalformed means the upstream answered but the body could not be
	// parsed into the expected structure. Fatal for the call, not retried.
	ErrMalformed = errors.New("source: malformed upstream response")
)
