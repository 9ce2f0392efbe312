package metrics

import (
	"time"

	"github.com/go-authgate/passport-local/passport"
)

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordOutcome(strategy string, kind passport.Kind, duration time.Duration) {}
func (n *NoopMetrics) RecordLogout()                                                             {}
func (n *NoopMetrics) RecordTokenIssued(success bool, duration time.Duration)                    {}
func (n *NoopMetrics) RecordRateLimited(route string)                                            {}
func (n *NoopMetrics) SetUsersCount(authSource string, count int)                                {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)                                 {}
