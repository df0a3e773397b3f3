package client

import "sync"

// Session holds the bearer token and profile of the signed-in user. It is
// safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	fullName  string
	email     string
	photoPath *string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// User returns the signed-in user's display name and email.
func (s *Session) User() (fullName, email string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullName, s.email
}

// PhotoPath returns the stored profile photo path, if any.
func (s *Session) PhotoPath() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.photoPath
}

func (s *Session) set(res *AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = res.Token
	s.fullName = res.FullName
	s.email = res.Email
	s.photoPath = res.PhotoPath
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.fullName, s.email, s.photoPath = "", "", "", nil
}
