// Package session persists the authenticated member and the theme preference
// across process restarts. Both live in the local key-value store only; the
// member row itself is owned by the remote and may drift until the next full
// resync.
package session

import (
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/member"
)

const (
	sessionKey = "cm_logged_user"
	themeKey   = "cm_theme"

	themeDark  = "dark"
	themeLight = "light"
)

// mockable
var nowFunc = time.Now

// claims wraps the persisted member in a signed token so a tampered local
// blob fails verification and degrades to logged-out.
type claims struct {
	jwt.StandardClaims
	Member *member.Member `json:"member"`
}

type Store struct {
	kv     core.KeyValue
	log    core.Logger
	secret []byte

	mu       sync.RWMutex
	current  *member.Member
	darkMode bool
}

func NewStore(kv core.KeyValue, log core.Logger, secret string) *Store {
	return &Store{kv: kv, log: log, secret: []byte(secret)}
}

// Load reads the persisted state at process start. Absent or corrupt entries
// yield the defaults (logged out, light theme); nothing here ever fails the
// caller.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if blob, err := s.kv.Get(sessionKey); err == nil {
		if m, err := s.verify(string(blob)); err == nil {
			s.current = m
		} else {
			s.log.Debug("discarding invalid session blob", err)
		}
	} else if err != core.ErrKeyNotFound {
		s.log.Warn("loading session", err)
	}

	s.darkMode = false
	if theme, err := s.kv.Get(themeKey); err == nil {
		s.darkMode = string(theme) == themeDark
	}
}

// Member returns the authenticated member, or nil when logged out.
func (s *Store) Member() *member.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	m := *s.current
	return &m
}

// SetMember persists the session (login, signup, profile update) or clears
// it (nil, logout). Local persistence failures are logged and swallowed; the
// in-memory state is updated regardless.
func (s *Store) SetMember(m *member.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m == nil {
		s.current = nil
		if err := s.kv.Delete(sessionKey); err != nil {
			s.log.Warn("clearing session", err)
		}
		return
	}

	cp := *m
	s.current = &cp
	blob, err := s.sign(&cp)
	if err != nil {
		s.log.Warn("signing session", err)
		return
	}
	if err = s.kv.Set(sessionKey, []byte(blob)); err != nil {
		s.log.Warn("persisting session", err)
	}
}

func (s *Store) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

func (s *Store) SetDarkMode(dark bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.darkMode = dark
	theme := themeLight
	if dark {
		theme = themeDark
	}
	if err := s.kv.Set(themeKey, []byte(theme)); err != nil {
		s.log.Warn("persisting theme", err)
	}
}

// CanAdminister reports whether the current session may reach the admin
// surface.
func (s *Store) CanAdminister() bool {
	return member.CanAdminister(s.Member())
}

func (s *Store) sign(m *member.Member) (string, error) {
	c := &claims{
		StandardClaims: jwt.StandardClaims{
			Subject:  m.ID,
			IssuedAt: nowFunc().Unix(),
		},
		Member: m,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

func (s *Store) verify(blob string) (*member.Member, error) {
	var c claims
	_, err := jwt.ParseWithClaims(blob, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return c.Member, nil
}
