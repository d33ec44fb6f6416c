// Package session keeps the client's authentication state: the current
// access/refresh token pair and the logged-in user's email. All methods
// are safe for concurrent use.
package session

import "sync"

type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	email        string
}

func New() *Session {
	return &Session{}
}

// Set replaces the stored token pair and user email.
func (s *Session) Set(accessToken, refreshToken, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.email = email
}

// SetAccessToken replaces only the access token, keeping the refresh
// token and email. Used after a refresh.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// Clear wipes the session. Used on logout and on failed refresh.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.email = ""
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// LoggedIn reports whether a token pair is present.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}
