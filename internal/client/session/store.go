package session

import (
	"sync"

	"github.com/iudanet/esps-console/pkg/api"
)

// Session is a point-in-time copy of the authenticated state of the console.
type Session struct {
	User  *api.UserProfile
	Token string
}

// Store holds the token and cached profile for the lifetime of the process.
// Nothing is persisted: a new process always starts unauthenticated.
type Store struct {
	user  *api.UserProfile
	token string
	mu    sync.RWMutex
}

// NewStore создает пустое хранилище сессии
func NewStore() *Store {
	return &Store{}
}

// Set устанавливает новую сессию (после успешного логина)
func (s *Store) Set(token string, user *api.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = cloneProfile(user)
}

// ReplaceUser заменяет закешированный профиль целиком, если токен не сменился
// с момента запроса профиля. Возвращает false, если сессия уже другая.
func (s *Store) ReplaceUser(token string, user *api.UserProfile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.token != token {
		return false
	}
	s.user = cloneProfile(user)
	return true
}

// Clear уничтожает сессию
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Invalidate уничтожает сессию, только если она все еще использует token.
// Используется guard'ом после отвергнутой проверки токена.
func (s *Store) Invalidate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.token != token {
		return false
	}
	s.token = ""
	s.user = nil
	return true
}

// Snapshot возвращает копию текущей сессии; false если токена нет
func (s *Store) Snapshot() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return Session{}, false
	}
	return Session{Token: s.token, User: cloneProfile(s.user)}, true
}

// Token возвращает текущий токен (пустая строка, если сессии нет)
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func cloneProfile(p *api.UserProfile) *api.UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	if p.Detil != nil {
		out.Detil = make([]api.RoleAssignment, len(p.Detil))
		copy(out.Detil, p.Detil)
	}
	return &out
}
