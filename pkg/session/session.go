// Package session keeps per-login state: who is logged in, whose allowance they are looking
// at and which week entry is waiting for confirmation.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/utils"
	"github.com/zakgeld/moni/pkg/user"
)

var (
	ErrNoSession    = errors.New("no session")
	ErrNotYourChild = errors.New("child does not belong to this parent")
)

type Session struct {
	Token    string
	UserId   int
	UserUid  string
	Role     user.Role
	// ActingFor is the owner uid whose records this session reads and writes. It is the
	// user's own uid unless a parent switched to one of their children.
	ActingFor string
	Pending   *Pending
	ExpiresAt time.Time
}

// Pending is a previewed week that has not been confirmed yet.
type Pending struct {
	Owner        string
	WeekId       string
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	Withdrawn    decimal.Decimal
	NewBalance   decimal.Decimal
	NegativeWeek bool
	PreviewedAt  time.Time
}

// Manager is an in-memory session store.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	clock    utils.Clock
}

func NewManager(ttl time.Duration, clock utils.Clock) *Manager {
	return &Manager{
		sessions: make(map[string]Session),
		ttl:      ttl,
		clock:    clock,
	}
}

// Start opens a new session for u acting for itself.
func (m *Manager) Start(u user.User) Session {
	s := Session{
		Token:     uuid.NewString(),
		UserId:    u.Id,
		UserUid:   u.Uid,
		Role:      u.Role,
		ActingFor: u.Uid,
		ExpiresAt: m.clock.Now().Add(m.ttl),
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	log.Debugf("started session for user %s", u.Uid)
	return s
}

// Get returns a live session and extends its expiry. Expired sessions are removed.
func (m *Manager) Get(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}
	now := m.clock.Now()
	if !now.Before(s.ExpiresAt) {
		delete(m.sessions, token)
		log.Debugf("session of user %s expired", s.UserUid)
		return Session{}, ErrNoSession
	}
	s.ExpiresAt = now.Add(m.ttl)
	m.sessions[token] = s
	return s, nil
}

func (m *Manager) End(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// ActAs switches a parent's session to one of their children, or back to the parent when
// ownerUid is the parent's own uid. Any pending confirmation is dropped.
func (m *Manager) ActAs(token string, owner user.User) (Session, error) {
	return m.update(token, func(s *Session) error {
		if owner.Uid != s.UserUid {
			if s.Role != user.RoleParent {
				return user.ErrNotParent
			}
			if owner.ParentId != s.UserId {
				return ErrNotYourChild
			}
		}
		s.ActingFor = owner.Uid
		s.Pending = nil
		return nil
	})
}

func (m *Manager) SetPending(token string, pending Pending) error {
	_, err := m.update(token, func(s *Session) error {
		s.Pending = &pending
		return nil
	})
	return err
}

func (m *Manager) ClearPending(token string) error {
	_, err := m.update(token, func(s *Session) error {
		s.Pending = nil
		return nil
	})
	return err
}

func (m *Manager) update(token string, fn func(s *Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}
	if err := fn(&s); err != nil {
		return Session{}, err
	}
	m.sessions[token] = s
	return s, nil
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func Current(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}
