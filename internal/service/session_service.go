package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/store"
)

// UserDirectory maps external accounts onto identities.
type UserDirectory interface {
	UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error)
	EnsureByEmail(ctx context.Context, email, displayName string) (*model.User, error)
	Session(ctx context.Context, userID string) (model.Identity, error)
	ListTelegram(ctx context.Context) ([]model.User, error)
}

// SessionService hands out one store.Session per signed-in user and keeps it
// open, so repeated requests from a view reuse the same mirror and
// subscriptions.
type SessionService struct {
	users   UserDirectory
	backend store.Backend
	opts    store.Options
	log     *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*store.Session
}

func NewSessionService(users UserDirectory, backend store.Backend, opts store.Options, log *logrus.Entry) *SessionService {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Log == nil {
		opts.Log = log
	}
	return &SessionService{
		users:    users,
		backend:  backend,
		opts:     opts,
		log:      log,
		sessions: make(map[string]*store.Session),
	}
}

// ForTelegram signs in a Telegram account, creating the user on first contact.
func (s *SessionService) ForTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*store.Session, error) {
	user, err := s.users.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username)
	if err != nil {
		return nil, fmt.Errorf("sign in telegram user: %w", err)
	}
	return s.openSession(ctx, user.Identity()), nil
}

// ForEmail signs in by email, creating the user on first use.
func (s *SessionService) ForEmail(ctx context.Context, email string) (*store.Session, error) {
	user, err := s.users.EnsureByEmail(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("sign in %s: %w", email, err)
	}
	return s.openSession(ctx, user.Identity()), nil
}

// ForUser resumes the session of a known user id.
func (s *SessionService) ForUser(ctx context.Context, userID string) (*store.Session, error) {
	if sess := s.cached(userID); sess != nil {
		return sess, nil
	}
	id, err := s.users.Session(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	return s.openSession(ctx, id), nil
}

// TelegramUsers lists users the bot can reach.
func (s *SessionService) TelegramUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListTelegram(ctx)
}

// Count reports how many sessions are held.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close tears down every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
}

func (s *SessionService) cached(userID string) *store.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// openSession loads the stores outside the lock. When two callers race for
// the same user the first insert wins and the loser is closed.
func (s *SessionService) openSession(ctx context.Context, id model.Identity) *store.Session {
	if sess := s.cached(id.UserID); sess != nil {
		return sess
	}
	fresh := store.OpenSession(ctx, s.backend, id, s.opts)

	s.mu.Lock()
	if sess, ok := s.sessions[id.UserID]; ok {
		s.mu.Unlock()
		fresh.Close()
		return sess
	}
	s.sessions[id.UserID] = fresh
	s.mu.Unlock()

	s.log.WithField("user_id", id.UserID).Info("session opened")
	return fresh
}
