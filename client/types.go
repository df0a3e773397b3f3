package client

import (
	"time"

	"github.com/meetly/meetly/internal/model"
)

// RegisterRequest creates an account.
type RegisterRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone,omitempty"`
	Password  string  `json:"password"`
	PhotoPath *string `json:"photoPath,omitempty"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	FullName  string  `json:"fullName"`
	Email     string  `json:"email"`
	Token     string  `json:"token"`
	PhotoPath *string `json:"photoPath,omitempty"`
}

// MeetingRequest is the editable part of a meeting.
type MeetingRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	FilePath        *string   `json:"filePath,omitempty"`
}

type updateMeetingRequest struct {
	ID string `json:"id"`
	MeetingRequest
}

// Meeting as served by the API.
type Meeting struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	CreatedByUserID string    `json:"createdByUserId"`
	FilePath        *string   `json:"filePath,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	PublicLinkID    string    `json:"publicLinkId"`
	JoinURL         string    `json:"joinUrl"`
	IsCanceled      bool      `json:"isCanceled"`
	Status          string    `json:"status"`
}

// StatusAt derives the meeting state at now with the same rules the server
// uses, so a UI can refresh labels without refetching.
func (m *Meeting) StatusAt(now time.Time) model.MeetingStatus {
	return model.Status(now, m.StartTime, m.EndTime, m.IsCanceled)
}

type inviteRequest struct {
	MeetingID string   `json:"meetingId"`
	EmailList []string `json:"emailList"`
}

// FailedRecipient is an invitee that could not be reached.
type FailedRecipient struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// InviteResult reports the outcome per recipient.
type InviteResult struct {
	Sent   []string          `json:"sent"`
	Failed []FailedRecipient `json:"failed"`
}

// InvitationRecord is one past invite batch of a meeting.
type InvitationRecord struct {
	ID                string    `json:"id"`
	MeetingID         string    `json:"meetingId"`
	RequestedByUserID string    `json:"requestedByUserId"`
	Sent              []string  `json:"sent"`
	Failed            []string  `json:"failed"`
	CreatedAt         time.Time `json:"createdAt"`
}

type fileUploadResponse struct {
	Path string `json:"path"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
