package dto

import (
	"time"

	"github.com/meetly/meetly/internal/model"
)

// CreateMeetingRequest is the body of POST /api/meeting.
type CreateMeetingRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	FilePath        *string   `json:"filePath,omitempty"`
}

// UpdateMeetingRequest is the body of PUT /api/meeting.
type UpdateMeetingRequest struct {
	ID string `json:"id"`
	CreateMeetingRequest
}

// InviteRequest is the body of POST /api/meeting/invite.
type InviteRequest struct {
	MeetingID string   `json:"meetingId"`
	EmailList []string `json:"emailList"`
}

// InviteResponse reports the outcome per recipient.
type InviteResponse struct {
	Sent   []string                `json:"sent"`
	Failed []model.FailedRecipient `json:"failed"`
}

// InvitationRecordResponse is one past invite batch.
type InvitationRecordResponse struct {
	ID          string    `json:"id"`
	MeetingID   string    `json:"meetingId"`
	RequestedBy string    `json:"requestedByUserId"`
	Sent        []string  `json:"sent"`
	Failed      []string  `json:"failed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToInvitationRecordResponses converts audit records, keeping empty
// address lists as JSON arrays.
func ToInvitationRecordResponses(records []*model.InvitationRecord) []InvitationRecordResponse {
	out := make([]InvitationRecordResponse, 0, len(records))
	for _, rec := range records {
		resp := InvitationRecordResponse{
			ID:          rec.ID,
			MeetingID:   rec.MeetingID,
			RequestedBy: rec.RequestedBy,
			Sent:        rec.Sent,
			Failed:      rec.Failed,
			CreatedAt:   rec.CreatedAt,
		}
		if resp.Sent == nil {
			resp.Sent = []string{}
		}
		if resp.Failed == nil {
			resp.Failed = []string{}
		}
		out = append(out, resp)
	}
	return out
}

// MeetingResponse represents a meeting in API responses.
type MeetingResponse struct {
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

// ToMeetingResponse converts a Meeting model to its API form. The status is
// derived at now.
func ToMeetingResponse(m *model.Meeting, joinURL string, now time.Time) *MeetingResponse {
	return &MeetingResponse{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		DurationMinutes: int(m.Duration() / time.Minute),
		CreatedByUserID: m.CreatedBy,
		FilePath:        m.FilePath,
		CreatedAt:       m.CreatedAt,
		PublicLinkID:    m.PublicLinkID,
		JoinURL:         joinURL,
		IsCanceled:      m.IsCanceled,
		Status:          string(m.Status(now)),
	}
}
