package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/meetly/meetly/internal/model"
)

// InvitationLog persists invite batches for auditing.
type InvitationLog struct {
	db *sql.DB
}

// NewInvitationLog creates an invitation log over db.
func NewInvitationLog(db *sql.DB) *InvitationLog {
	return &InvitationLog{db: db}
}

// Record stores one invite batch.
func (l *InvitationLog) Record(ctx context.Context, rec *model.InvitationRecord) error {
	query := `
		INSERT INTO invitations (id, meeting_id, requested_by, sent, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := l.db.ExecContext(ctx, query,
		rec.ID,
		rec.MeetingID,
		rec.RequestedBy,
		pq.Array(nonNil(rec.Sent)),
		pq.Array(nonNil(rec.Failed)),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invitation record: %w", err)
	}
	return nil
}

// ListByMeeting returns the invite batches of a meeting, newest first.
func (l *InvitationLog) ListByMeeting(ctx context.Context, meetingID string) ([]*model.InvitationRecord, error) {
	query := `
		SELECT id, meeting_id, requested_by, sent, failed, created_at
		FROM invitations
		WHERE meeting_id = $1
		ORDER BY created_at DESC
	`

	rows, err := l.db.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	var records []*model.InvitationRecord
	for rows.Next() {
		var rec model.InvitationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.MeetingID,
			&rec.RequestedBy,
			pq.Array(&rec.Sent),
			pq.Array(&rec.Failed),
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invitation record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return records, nil
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
