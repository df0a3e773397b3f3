package model

import "time"

// FailedRecipient is an address that could not be invited and why.
type FailedRecipient struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// InvitationResult is the per-recipient outcome of one invite batch.
type InvitationResult struct {
	Sent   []string          `json:"sent"`
	Failed []FailedRecipient `json:"failed"`
}

// FailedEmails returns only the addresses of failed recipients.
func (r *InvitationResult) FailedEmails() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Email)
	}
	return out
}

// InvitationRecord is the persisted audit entry for an invite batch.
type InvitationRecord struct {
	ID          string
	MeetingID   string
	RequestedBy string
	Sent        []string
	Failed      []string
	CreatedAt   time.Time
}
