package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meetly/meetly/internal/cache"
	"github.com/meetly/meetly/internal/mail"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMeetingStore struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
	lookups  int
}

func newFakeMeetingStore() *fakeMeetingStore {
	return &fakeMeetingStore{meetings: make(map[string]*model.Meeting)}
}

func (f *fakeMeetingStore) put(m *model.Meeting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.meetings[m.ID] = &cp
}

func (f *fakeMeetingStore) get(id string) *model.Meeting {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func (f *fakeMeetingStore) CreateMeeting(_ context.Context, m *model.Meeting) error {
	f.put(m)
	return nil
}

func (f *fakeMeetingStore) GetMeetingByID(_ context.Context, id string) (*model.Meeting, error) {
	if m := f.get(id); m != nil {
		return m, nil
	}
	return nil, repository.ErrMeetingNotFound
}

func (f *fakeMeetingStore) GetMeetingByPublicLink(_ context.Context, linkID string) (*model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	for _, m := range f.meetings {
		if m.PublicLinkID == linkID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrMeetingNotFound
}

func (f *fakeMeetingStore) ListMeetings(_ context.Context) ([]*model.Meeting, error) {
	return f.list(func(*model.Meeting) bool { return true }), nil
}

func (f *fakeMeetingStore) ListMeetingsByCreator(_ context.Context, userID string) ([]*model.Meeting, error) {
	return f.list(func(m *model.Meeting) bool { return m.CreatedBy == userID }), nil
}

func (f *fakeMeetingStore) list(keep func(*model.Meeting) bool) []*model.Meeting {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Meeting, 0, len(f.meetings))
	for _, m := range f.meetings {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (f *fakeMeetingStore) UpdateMeeting(_ context.Context, m *model.Meeting) error {
	if f.get(m.ID) == nil {
		return repository.ErrMeetingNotFound
	}
	f.put(m)
	return nil
}

func (f *fakeMeetingStore) CancelMeeting(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return repository.ErrMeetingNotFound
	}
	m.IsCanceled = true
	return nil
}

func (f *fakeMeetingStore) DeleteMeeting(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meetings[id]; !ok {
		return repository.ErrMeetingNotFound
	}
	delete(f.meetings, id)
	return nil
}

type fakeJoinCache struct {
	mu       sync.Mutex
	entries  map[string]*model.Meeting
	negative map[string]bool
	down     bool
}

func newFakeJoinCache() *fakeJoinCache {
	return &fakeJoinCache{
		entries:  make(map[string]*model.Meeting),
		negative: make(map[string]bool),
	}
}

var errRedisDown = errors.New("redis: connection refused")

func (c *fakeJoinCache) GetMeetingByLink(_ context.Context, linkID string) (*model.Meeting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errRedisDown
	}
	m, ok := c.entries[linkID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	cp := *m
	return &cp, nil
}

func (c *fakeJoinCache) SetMeeting(_ context.Context, m *model.Meeting) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errRedisDown
	}
	cp := *m
	c.entries[m.PublicLinkID] = &cp
	delete(c.negative, m.PublicLinkID)
	return nil
}

func (c *fakeJoinCache) DeleteMeeting(_ context.Context, linkIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range linkIDs {
		delete(c.entries, id)
		delete(c.negative, id)
	}
	return nil
}

func (c *fakeJoinCache) IsNegativelyCached(_ context.Context, linkID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negative[linkID], nil
}

func (c *fakeJoinCache) SetNegativeCache(_ context.Context, linkID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errRedisDown
	}
	c.negative[linkID] = true
	return nil
}

func (c *fakeJoinCache) has(linkID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[linkID]
	return ok
}

type fakeMailer struct {
	mu         sync.Mutex
	sent       []string
	fail       map[string]bool
	welcomed   []string
	welcomeErr error
}

func (m *fakeMailer) SendInvitation(_ context.Context, to string, _ mail.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[strings.ToLower(to)] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.welcomeErr != nil {
		return m.welcomeErr
	}
	m.welcomed = append(m.welcomed, to)
	return nil
}

type fakeRecorder struct {
	records []*model.InvitationRecord
}

func (r *fakeRecorder) Record(_ context.Context, rec *model.InvitationRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) ListByMeeting(_ context.Context, meetingID string) ([]*model.InvitationRecord, error) {
	var out []*model.InvitationRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].MeetingID == meetingID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*model.User)}
}

func (s *fakeUserStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := u.Email
	if _, ok := s.byEmail[key]; ok {
		return repository.ErrEmailExists
	}
	cp := *u
	s.byEmail[key] = &cp
	return nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID, _, _ string, role model.Role) (string, error) {
	return "token-" + userID + "-" + string(role), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
