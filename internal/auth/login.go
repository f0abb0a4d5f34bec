package auth

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// pendingLogin is what the callback needs to finish a login started by /start.
type pendingLogin struct {
	verifier  string
	returnTo  string
	expiresAt time.Time
}

type loginStore struct {
	mu    sync.Mutex
	items map[string]pendingLogin
	now   func() time.Time
}

func newLoginStore() *loginStore {
	return &loginStore{items: make(map[string]pendingLogin), now: time.Now}
}

// put stores a pending login and drops any that already expired.
func (s *loginStore) put(state string, login pendingLogin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
	s.items[state] = login
}

// take removes the login for state. Expired logins are reported as missing.
func (s *loginStore) take(state string) (pendingLogin, bool) {
	s.mu.Lock()
	login, ok := s.items[state]
	delete(s.items, state)
	s.mu.Unlock()
	if !ok || s.now().After(login.expiresAt) {
		return pendingLogin{}, false
	}
	return login, true
}

// safeReturnPath accepts only same-site absolute paths such as "/documents/42".
func safeReturnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return u.RequestURI()
}

// uiRedirect builds the frontend URL that receives the session token.
func uiRedirect(base, token, returnTo string) (string, error) {
	if base == "" {
		return "", errMissingUIRedirect
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	if returnTo != "" {
		q.Set("next", returnTo)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
