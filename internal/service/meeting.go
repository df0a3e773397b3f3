package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/meetly/meetly/internal/cache"
	"github.com/meetly/meetly/internal/mail"
	"github.com/meetly/meetly/internal/metrics"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/policy"
	"github.com/meetly/meetly/internal/repository"
)

// Meeting field limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 500
	MaxInviteRecipients  = 100
	MaxDurationMinutes   = 7 * 24 * 60
	joinPathPrefix       = "/meeting/join/"
)

// MeetingStore is the persistence the meeting service needs.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, m *model.Meeting) error
	GetMeetingByID(ctx context.Context, id string) (*model.Meeting, error)
	GetMeetingByPublicLink(ctx context.Context, linkID string) (*model.Meeting, error)
	ListMeetings(ctx context.Context) ([]*model.Meeting, error)
	ListMeetingsByCreator(ctx context.Context, userID string) ([]*model.Meeting, error)
	UpdateMeeting(ctx context.Context, m *model.Meeting) error
	CancelMeeting(ctx context.Context, id string) error
	DeleteMeeting(ctx context.Context, id string) error
}

// JoinCache fronts public link lookups.
type JoinCache interface {
	GetMeetingByLink(ctx context.Context, linkID string) (*model.Meeting, error)
	SetMeeting(ctx context.Context, m *model.Meeting) error
	DeleteMeeting(ctx context.Context, linkIDs ...string) error
	IsNegativelyCached(ctx context.Context, linkID string) (bool, error)
	SetNegativeCache(ctx context.Context, linkID string) error
}

// InvitationMailer delivers one invitation.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, to string, inv mail.Invitation) error
}

// InvitationRecorder persists invite batches and reads them back.
type InvitationRecorder interface {
	Record(ctx context.Context, rec *model.InvitationRecord) error
	ListByMeeting(ctx context.Context, meetingID string) ([]*model.InvitationRecord, error)
}

// MeetingService handles meeting business logic.
type MeetingService struct {
	repo       MeetingStore
	cache      JoinCache
	mailer     InvitationMailer
	recorder   InvitationRecorder
	baseDomain string
	metrics    metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewMeetingService creates a new MeetingService. baseDomain prefixes join
// URLs, e.g. "https://meet.example.com".
func NewMeetingService(
	repo MeetingStore,
	joinCache JoinCache,
	mailer InvitationMailer,
	recorder InvitationRecorder,
	baseDomain string,
	metricsRecorder metrics.Recorder,
	logger *slog.Logger,
) *MeetingService {
	if metricsRecorder == nil {
		metricsRecorder = metrics.NewNoop()
	}
	return &MeetingService{
		repo:       repo,
		cache:      joinCache,
		mailer:     mailer,
		recorder:   recorder,
		baseDomain: strings.TrimRight(baseDomain, "/"),
		metrics:    metricsRecorder,
		logger:     logger.With("component", "meeting_service"),
		now:        time.Now,
	}
}

// MeetingInput defines input for creating or updating a meeting.
type MeetingInput struct {
	Title           string
	Description     string
	StartTime       time.Time
	DurationMinutes int
	FilePath        *string
}

// JoinURL returns the public URL invitees open.
func (s *MeetingService) JoinURL(m *model.Meeting) string {
	return s.baseDomain + joinPathPrefix + m.PublicLinkID
}

// Now returns the service clock, used to derive meeting status.
func (s *MeetingService) Now() time.Time {
	return s.now()
}

// ListAll returns every meeting. Any signed-in user may call it.
func (s *MeetingService) ListAll(ctx context.Context, caller *model.Identity) ([]*model.Meeting, error) {
	if err := policy.Check(policy.MeetingListAll, caller, ""); err != nil {
		return nil, err
	}
	return s.repo.ListMeetings(ctx)
}

// ListMine returns the caller's meetings, latest start first.
func (s *MeetingService) ListMine(ctx context.Context, caller *model.Identity) ([]*model.Meeting, error) {
	if err := policy.Check(policy.MeetingListMine, caller, ""); err != nil {
		return nil, err
	}
	return s.repo.ListMeetingsByCreator(ctx, caller.UserID)
}

// GetByID retrieves a meeting by its internal id.
func (s *MeetingService) GetByID(ctx context.Context, caller *model.Identity, id string) (*model.Meeting, error) {
	if err := policy.Check(policy.MeetingGet, caller, ""); err != nil {
		return nil, err
	}

	m, err := s.repo.GetMeetingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return m, nil
}

// GetByPublicLink resolves a join link. An unknown or malformed link yields
// (nil, nil).
func (s *MeetingService) GetByPublicLink(ctx context.Context, linkID string) (*model.Meeting, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveJoinDuration(time.Since(start))
	}()

	parsed, err := uuid.Parse(linkID)
	if err != nil {
		return nil, nil
	}
	linkID = parsed.String()

	cached, err := s.cache.GetMeetingByLink(ctx, linkID)
	if err == nil {
		s.metrics.IncJoinCacheHit()
		return cached, nil
	}

	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.IncJoinCacheMiss()
		if negative, _ := s.cache.IsNegativelyCached(ctx, linkID); negative {
			return nil, nil
		}
	} else {
		s.logger.WarnContext(ctx, "join cache unavailable", "error", err)
	}

	m, err := s.repo.GetMeetingByPublicLink(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			_ = s.cache.SetNegativeCache(ctx, linkID)
			return nil, nil
		}
		return nil, err
	}

	_ = s.cache.SetMeeting(ctx, m)
	return m, nil
}

// Create schedules a new meeting owned by the caller.
func (s *MeetingService) Create(ctx context.Context, caller *model.Identity, in MeetingInput) (*model.Meeting, error) {
	if err := policy.Check(policy.MeetingCreate, caller, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	title, description, end, filePath, err := validateMeeting(in, now)
	if err != nil {
		return nil, err
	}

	m := &model.Meeting{
		ID:           ulid.Make().String(),
		Title:        title,
		Description:  description,
		StartTime:    in.StartTime.UTC(),
		EndTime:      end,
		CreatedBy:    caller.UserID,
		FilePath:     filePath,
		PublicLinkID: uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	s.metrics.IncMeetingCreated()
	s.logger.InfoContext(ctx, "meeting created",
		"meeting_id", m.ID,
		"user_id", caller.UserID,
	)

	return m, nil
}

// Update rewrites a meeting the caller owns. It returns false, and leaves the
// record untouched, when the meeting is missing or owned by someone else.
func (s *MeetingService) Update(ctx context.Context, caller *model.Identity, id string, in MeetingInput) (bool, error) {
	if err := policy.Check(policy.MeetingUpdate, caller, ""); err != nil {
		return false, err
	}

	now := s.now().UTC()
	title, description, end, filePath, err := validateMeeting(in, now)
	if err != nil {
		return false, err
	}

	m, err := s.loadOwned(ctx, policy.MeetingUpdate, caller, id)
	if m == nil || err != nil {
		return false, err
	}

	m.Title = title
	m.Description = description
	m.StartTime = in.StartTime.UTC()
	m.EndTime = end
	m.FilePath = filePath
	m.UpdatedAt = now

	if err := s.repo.UpdateMeeting(ctx, m); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("update meeting: %w", err)
	}

	_ = s.cache.DeleteMeeting(ctx, m.PublicLinkID)
	s.metrics.IncMeetingUpdated()
	return true, nil
}

// CancelOrDelete marks a meeting canceled. The row is removed later by the
// sweep. It returns false when the meeting is missing or not the caller's.
func (s *MeetingService) CancelOrDelete(ctx context.Context, caller *model.Identity, id string) (bool, error) {
	if err := policy.Check(policy.MeetingCancel, caller, ""); err != nil {
		return false, err
	}

	m, err := s.loadOwned(ctx, policy.MeetingCancel, caller, id)
	if m == nil || err != nil {
		return false, err
	}

	if err := s.repo.CancelMeeting(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("cancel meeting: %w", err)
	}

	_ = s.cache.DeleteMeeting(ctx, m.PublicLinkID)
	s.metrics.IncMeetingCanceled()
	s.logger.InfoContext(ctx, "meeting canceled",
		"meeting_id", id,
		"user_id", caller.UserID,
	)
	return true, nil
}

// HardDelete removes a meeting permanently. Admin only.
func (s *MeetingService) HardDelete(ctx context.Context, caller *model.Identity, id string) (bool, error) {
	if err := policy.Check(policy.MeetingHardDelete, caller, ""); err != nil {
		return false, err
	}

	m, err := s.repo.GetMeetingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.repo.DeleteMeeting(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete meeting: %w", err)
	}

	_ = s.cache.DeleteMeeting(ctx, m.PublicLinkID)
	s.metrics.IncMeetingDeleted()
	s.logger.InfoContext(ctx, "meeting deleted",
		"meeting_id", id,
		"user_id", caller.UserID,
	)
	return true, nil
}

// Invite emails the join link to each unique address. Deliveries run one
// after another and a failed address does not stop the batch.
func (s *MeetingService) Invite(ctx context.Context, caller *model.Identity, meetingID string, emails []string) (*model.InvitationResult, error) {
	if err := policy.Check(policy.MeetingInvite, caller, ""); err != nil {
		return nil, err
	}

	recipients := dedupeAddresses(emails)
	if len(recipients) == 0 {
		return nil, invalid("emails", "at least one address is required")
	}
	if len(recipients) > MaxInviteRecipients {
		return nil, invalid("emails", fmt.Sprintf("at most %d addresses per request", MaxInviteRecipients))
	}

	m, err := s.loadOwned(ctx, policy.MeetingInvite, caller, meetingID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMeetingNotFound
	}

	inv := mail.Invitation{
		MeetingID:      m.ID,
		Title:          m.Title,
		Description:    m.Description,
		JoinURL:        s.JoinURL(m),
		Start:          m.StartTime,
		End:            m.EndTime,
		OrganizerName:  caller.FullName,
		OrganizerEmail: caller.Email,
	}

	result := &model.InvitationResult{
		Sent:   []string{},
		Failed: []model.FailedRecipient{},
	}

	for _, raw := range recipients {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			result.Failed = append(result.Failed, model.FailedRecipient{Email: raw, Reason: "invalid address"})
			s.metrics.IncInvitationFailed()
			continue
		}

		if err := s.mailer.SendInvitation(ctx, addr, inv); err != nil {
			result.Failed = append(result.Failed, model.FailedRecipient{Email: addr, Reason: "delivery failed"})
			s.metrics.IncInvitationFailed()
			continue
		}

		result.Sent = append(result.Sent, addr)
		s.metrics.IncInvitationSent()
	}

	rec := &model.InvitationRecord{
		ID:          ulid.Make().String(),
		MeetingID:   m.ID,
		RequestedBy: caller.UserID,
		Sent:        result.Sent,
		Failed:      result.FailedEmails(),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "invitation batch not recorded",
			"meeting_id", m.ID,
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "invitations dispatched",
		"meeting_id", m.ID,
		"sent", len(result.Sent),
		"failed", len(result.Failed),
	)

	return result, nil
}

// Invitations returns the invite batches of a meeting the caller owns,
// newest first.
func (s *MeetingService) Invitations(ctx context.Context, caller *model.Identity, meetingID string) ([]*model.InvitationRecord, error) {
	if err := policy.Check(policy.MeetingInvitations, caller, ""); err != nil {
		return nil, err
	}

	m, err := s.loadOwned(ctx, policy.MeetingInvitations, caller, meetingID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMeetingNotFound
	}

	records, err := s.recorder.ListByMeeting(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	if records == nil {
		records = []*model.InvitationRecord{}
	}
	return records, nil
}

// loadOwned returns the meeting when caller may act on it under op, and
// (nil, nil) when it is missing or owned by someone else.
func (s *MeetingService) loadOwned(ctx context.Context, op policy.Operation, caller *model.Identity, id string) (*model.Meeting, error) {
	m, err := s.repo.GetMeetingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := policy.Check(op, caller, m.CreatedBy); err != nil {
		if errors.Is(err, policy.ErrNotOwner) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func validateMeeting(in MeetingInput, now time.Time) (title, description string, end time.Time, filePath *string, err error) {
	title = strings.TrimSpace(in.Title)
	description = strings.TrimSpace(in.Description)

	switch {
	case title == "":
		err = invalid("title", "is required")
	case len([]rune(title)) > MaxTitleLength:
		err = invalid("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	case description == "":
		err = invalid("description", "is required")
	case len([]rune(description)) > MaxDescriptionLength:
		err = invalid("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	case in.StartTime.IsZero():
		err = invalid("startTime", "is required")
	case in.DurationMinutes <= 0:
		err = invalid("durationMinutes", "must be greater than zero")
	case in.DurationMinutes > MaxDurationMinutes:
		err = invalid("durationMinutes", fmt.Sprintf("must be at most %d", MaxDurationMinutes))
	}
	if err != nil {
		return "", "", time.Time{}, nil, err
	}

	end = in.StartTime.UTC().Add(time.Duration(in.DurationMinutes) * time.Minute)
	if !end.After(now) {
		return "", "", time.Time{}, nil, ErrMeetingInPast
	}

	filePath, err = normalizeOptionalPath(in.FilePath)
	if err != nil {
		return "", "", time.Time{}, nil, invalid("filePath", "must be a path returned by the upload endpoint")
	}

	return title, description, end, filePath, nil
}

// dedupeAddresses trims addresses and drops blanks and repeats, keeping the
// first occurrence. Comparison ignores case.
func dedupeAddresses(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
