package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meetly/meetly/internal/model"
)

// Common errors for meeting repository operations.
var (
	ErrMeetingNotFound  = errors.New("meeting not found")
	ErrPublicLinkExists = errors.New("public link already exists")
)

const meetingColumns = `id, title, description, start_time, end_time, created_by, file_path, public_link_id, is_canceled, created_at, updated_at`

// CreateMeeting inserts a new meeting into the database.
func (r *Repository) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	query := `
		INSERT INTO meetings (` + meetingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Title,
		m.Description,
		m.StartTime,
		m.EndTime,
		m.CreatedBy,
		m.FilePath,
		m.PublicLinkID,
		m.IsCanceled,
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrPublicLinkExists
		}
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	return nil
}

// GetMeetingByID retrieves a meeting by its ID.
func (r *Repository) GetMeetingByID(ctx context.Context, id string) (*model.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	m, err := scanMeeting(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to get meeting by ID: %w", err)
	}

	return m, nil
}

// GetMeetingByPublicLink retrieves a meeting by its public join identifier.
// This is the hot path for anonymous joins. linkID must be a valid UUID.
func (r *Repository) GetMeetingByPublicLink(ctx context.Context, linkID string) (*model.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE public_link_id = $1`

	m, err := scanMeeting(r.pool.QueryRow(ctx, query, linkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to get meeting by public link: %w", err)
	}

	return m, nil
}

// ListMeetings returns every meeting, most recent start first.
func (r *Repository) ListMeetings(ctx context.Context) ([]*model.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings ORDER BY start_time DESC, id DESC`
	return r.queryMeetings(ctx, query)
}

// ListMeetingsByCreator returns a user's meetings ordered by start time descending.
func (r *Repository) ListMeetingsByCreator(ctx context.Context, userID string) ([]*model.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE created_by = $1
		ORDER BY start_time DESC, id DESC
	`
	return r.queryMeetings(ctx, query, userID)
}

// UpdateMeeting updates a meeting's mutable fields. The public link and
// creator never change.
func (r *Repository) UpdateMeeting(ctx context.Context, m *model.Meeting) error {
	query := `
		UPDATE meetings
		SET title = $2, description = $3, start_time = $4, end_time = $5, file_path = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Title,
		m.Description,
		m.StartTime,
		m.EndTime,
		m.FilePath,
		m.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMeetingNotFound
	}

	return nil
}

// CancelMeeting marks a meeting canceled. Canceling twice is not an error.
func (r *Repository) CancelMeeting(ctx context.Context, id string) error {
	query := `
		UPDATE meetings
		SET is_canceled = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to cancel meeting: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMeetingNotFound
	}

	return nil
}

// DeleteMeeting permanently removes a meeting.
func (r *Repository) DeleteMeeting(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMeetingNotFound
	}

	return nil
}

// PurgeCanceledMeetings deletes every canceled meeting in one statement and
// returns the public links of the removed rows.
func (r *Repository) PurgeCanceledMeetings(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM meetings WHERE is_canceled RETURNING public_link_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to purge canceled meetings: %w", err)
	}

	links, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect purged links: %w", err)
	}

	return links, nil
}

func (r *Repository) queryMeetings(ctx context.Context, query string, args ...any) ([]*model.Meeting, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	meetings := make([]*model.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meetings: %w", err)
	}

	return meetings, nil
}

// scanMeeting scans a single row into a Meeting model.
func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	var m model.Meeting
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.StartTime,
		&m.EndTime,
		&m.CreatedBy,
		&m.FilePath,
		&m.PublicLinkID,
		&m.IsCanceled,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return &m, err
}
