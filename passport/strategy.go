// Package passport is the host side of request authentication: it holds a
// registry of named strategies, runs them against inbound requests and turns
// their outcome into HTTP actions on a gin router.
package passport

import "time"

// Strategy authenticates a single request. Implementations must produce
// exactly one Outcome per call and must not mutate the Request.
type Strategy interface {
	Name() string
	Authenticate(req *Request, opts Options) Outcome
}

// Options are per-call settings passed through to the strategy.
type Options struct {
	// BadRequestMessage replaces the default message used when a request
	// does not carry the expected credentials.
	BadRequestMessage string
}

// Recorder receives one observation per authenticate call.
type Recorder interface {
	RecordOutcome(strategy string, kind Kind, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(string, Kind, time.Duration) {}
