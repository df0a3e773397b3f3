package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	JoinCacheHits       uint64
	JoinCacheMisses     uint64
	JoinDurationCount   uint64
	JoinDurationTotalNs int64
	MeetingsCreated     uint64
	MeetingsUpdated     uint64
	MeetingsCanceled    uint64
	MeetingsDeleted     uint64
	Registrations       uint64
	LoginFailures       uint64
	InvitationsSent     uint64
	InvitationsFailed   uint64
	SweepRuns           uint64
	SweepFailures       uint64
	SweepPurged         uint64
}

// InMemoryRecorder stores metrics in memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	joinCacheHits       uint64
	joinCacheMisses     uint64
	joinDurationCount   uint64
	joinDurationTotalNs int64
	meetingsCreated     uint64
	meetingsUpdated     uint64
	meetingsCanceled    uint64
	meetingsDeleted     uint64
	registrations       uint64
	loginFailures       uint64
	invitationsSent     uint64
	invitationsFailed   uint64
	sweepRuns           uint64
	sweepFailures       uint64
	sweepPurged         uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		JoinCacheHits:       atomic.LoadUint64(&m.joinCacheHits),
		JoinCacheMisses:     atomic.LoadUint64(&m.joinCacheMisses),
		JoinDurationCount:   atomic.LoadUint64(&m.joinDurationCount),
		JoinDurationTotalNs: atomic.LoadInt64(&m.joinDurationTotalNs),
		MeetingsCreated:     atomic.LoadUint64(&m.meetingsCreated),
		MeetingsUpdated:     atomic.LoadUint64(&m.meetingsUpdated),
		MeetingsCanceled:    atomic.LoadUint64(&m.meetingsCanceled),
		MeetingsDeleted:     atomic.LoadUint64(&m.meetingsDeleted),
		Registrations:       atomic.LoadUint64(&m.registrations),
		LoginFailures:       atomic.LoadUint64(&m.loginFailures),
		InvitationsSent:     atomic.LoadUint64(&m.invitationsSent),
		InvitationsFailed:   atomic.LoadUint64(&m.invitationsFailed),
		SweepRuns:           atomic.LoadUint64(&m.sweepRuns),
		SweepFailures:       atomic.LoadUint64(&m.sweepFailures),
		SweepPurged:         atomic.LoadUint64(&m.sweepPurged),
	}
}

// IncJoinCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncJoinCacheHit() {
	atomic.AddUint64(&m.joinCacheHits, 1)
}

// IncJoinCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncJoinCacheMiss() {
	atomic.AddUint64(&m.joinCacheMisses, 1)
}

// ObserveJoinDuration records join lookup duration.
func (m *InMemoryRecorder) ObserveJoinDuration(duration time.Duration) {
	atomic.AddUint64(&m.joinDurationCount, 1)
	atomic.AddInt64(&m.joinDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) IncMeetingCreated() {
	atomic.AddUint64(&m.meetingsCreated, 1)
}

func (m *InMemoryRecorder) IncMeetingUpdated() {
	atomic.AddUint64(&m.meetingsUpdated, 1)
}

func (m *InMemoryRecorder) IncMeetingCanceled() {
	atomic.AddUint64(&m.meetingsCanceled, 1)
}

func (m *InMemoryRecorder) IncMeetingDeleted() {
	atomic.AddUint64(&m.meetingsDeleted, 1)
}

func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

func (m *InMemoryRecorder) IncLoginFailure() {
	atomic.AddUint64(&m.loginFailures, 1)
}

func (m *InMemoryRecorder) IncInvitationSent() {
	atomic.AddUint64(&m.invitationsSent, 1)
}

func (m *InMemoryRecorder) IncInvitationFailed() {
	atomic.AddUint64(&m.invitationsFailed, 1)
}

// IncSweepRun counts sweep passes; any status other than "success" is a failure.
func (m *InMemoryRecorder) IncSweepRun(status string) {
	atomic.AddUint64(&m.sweepRuns, 1)
	if status != "success" {
		atomic.AddUint64(&m.sweepFailures, 1)
	}
}

// AddSweepPurged adds the number of rows removed by a sweep.
func (m *InMemoryRecorder) AddSweepPurged(n int) {
	if n > 0 {
		atomic.AddUint64(&m.sweepPurged, uint64(n))
	}
}
