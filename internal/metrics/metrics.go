// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Join lookup metrics
	IncJoinCacheHit()
	IncJoinCacheMiss()
	ObserveJoinDuration(duration time.Duration)

	// Meeting lifecycle metrics
	IncMeetingCreated()
	IncMeetingUpdated()
	IncMeetingCanceled()
	IncMeetingDeleted()

	// Account metrics
	IncRegistration()
	IncLoginFailure()

	// Invitation metrics
	IncInvitationSent()
	IncInvitationFailed()

	// Sweep metrics
	IncSweepRun(status string) // status: "success" or "failed"
	AddSweepPurged(n int)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
