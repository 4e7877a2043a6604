package ports

import "time"

// MetricsReporter receives bootstrap measurements. Roles and artifacts are
// passed as their string forms so reporters stay free of domain types.
type MetricsReporter interface {
	// ObserveStep records how long a bootstrap step took.
	ObserveStep(role, step string, d time.Duration)
	// RecordBootstrap records the final outcome of a role's bootstrap.
	RecordBootstrap(role string, ok bool)
	// RecordPollAttempt records one probe of an exchange artifact.
	RecordPollAttempt(artifact string, ready bool)
	// RecordPublished records an artifact written to the exchange channel.
	RecordPublished(artifact string)
	// RecordIssued records the outcome of answering a certificate request.
	RecordIssued(ok bool)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) ObserveStep(string, string, time.Duration) {}
func (NopMetrics) RecordBootstrap(string, bool)              {}
func (NopMetrics) RecordPollAttempt(string, bool)            {}
func (NopMetrics) RecordPublished(string)                    {}
func (NopMetrics) RecordIssued(bool)                         {}
