package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncJoinCacheHit() {}

func (n *NoopRecorder) IncJoinCacheMiss() {}

func (n *NoopRecorder) ObserveJoinDuration(time.Duration) {}

func (n *NoopRecorder) IncMeetingCreated() {}

func (n *NoopRecorder) IncMeetingUpdated() {}

func (n *NoopRecorder) IncMeetingCanceled() {}

func (n *NoopRecorder) IncMeetingDeleted() {}

func (n *NoopRecorder) IncRegistration() {}

func (n *NoopRecorder) IncLoginFailure() {}

func (n *NoopRecorder) IncInvitationSent() {}

func (n *NoopRecorder) IncInvitationFailed() {}

func (n *NoopRecorder) IncSweepRun(string) {}

func (n *NoopRecorder) AddSweepPurged(int) {}
