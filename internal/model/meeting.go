// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// MeetingStatus is the presentation state of a meeting derived from the clock.
type MeetingStatus string

const (
	MeetingStatusUpcoming  MeetingStatus = "upcoming"
	MeetingStatusOngoing   MeetingStatus = "ongoing"
	MeetingStatusCompleted MeetingStatus = "completed"
	MeetingStatusCanceled  MeetingStatus = "canceled"
)

// Status derives a meeting's state from the wall clock. The window is
// half-open: a meeting is ongoing at start and completed at end.
func Status(now, start, end time.Time, canceled bool) MeetingStatus {
	switch {
	case canceled:
		return MeetingStatusCanceled
	case now.Before(start):
		return MeetingStatusUpcoming
	case now.Before(end):
		return MeetingStatusOngoing
	default:
		return MeetingStatusCompleted
	}
}

// Meeting represents a scheduled meeting owned by a user.
type Meeting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CreatedBy    string    `json:"created_by"`
	FilePath     *string   `json:"file_path,omitempty"`
	PublicLinkID string    `json:"public_link_id"`
	IsCanceled   bool      `json:"is_canceled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Status computes the meeting state at now.
func (m *Meeting) Status(now time.Time) MeetingStatus {
	return Status(now, m.StartTime, m.EndTime, m.IsCanceled)
}

// Duration returns the scheduled length of the meeting.
func (m *Meeting) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// IsOwnedBy reports whether userID created the meeting.
func (m *Meeting) IsOwnedBy(userID string) bool {
	return userID != "" && m.CreatedBy == userID
}

// CachedMeeting is the Redis hash form of a meeting used by the join lookup.
// Times are Unix nanoseconds so the hash round-trips without precision loss.
type CachedMeeting struct {
	ID          string `redis:"id"`
	Title       string `redis:"title"`
	Description string `redis:"description"`
	StartTime   string `redis:"start_time"`
	EndTime     string `redis:"end_time"`
	CreatedBy   string `redis:"created_by"`
	FilePath    string `redis:"file_path"` // empty when unset
	IsCanceled  string `redis:"is_canceled"` // "1" or "0"
	CreatedAt   string `redis:"created_at"`
	UpdatedAt   string `redis:"updated_at"`
}

// ToCachedMeeting converts a Meeting to its cache representation.
func (m *Meeting) ToCachedMeeting() *CachedMeeting {
	cached := &CachedMeeting{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		StartTime:   strconv.FormatInt(m.StartTime.UnixNano(), 10),
		EndTime:     strconv.FormatInt(m.EndTime.UnixNano(), 10),
		CreatedBy:   m.CreatedBy,
		IsCanceled:  "0",
		CreatedAt:   strconv.FormatInt(m.CreatedAt.UnixNano(), 10),
		UpdatedAt:   strconv.FormatInt(m.UpdatedAt.UnixNano(), 10),
	}
	if m.FilePath != nil {
		cached.FilePath = *m.FilePath
	}
	if m.IsCanceled {
		cached.IsCanceled = "1"
	}
	return cached
}

// ToMeeting converts the cached hash back into a Meeting.
func (c *CachedMeeting) ToMeeting(publicLinkID string) *Meeting {
	m := &Meeting{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		StartTime:    parseUnixNano(c.StartTime),
		EndTime:      parseUnixNano(c.EndTime),
		CreatedBy:    c.CreatedBy,
		PublicLinkID: publicLinkID,
		IsCanceled:   c.IsCanceled == "1",
		CreatedAt:    parseUnixNano(c.CreatedAt),
		UpdatedAt:    parseUnixNano(c.UpdatedAt),
	}
	if c.FilePath != "" {
		path := c.FilePath
		m.FilePath = &path
	}
	return m
}

func parseUnixNano(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
