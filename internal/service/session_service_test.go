package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/store"
)

func newTestSessions(t *testing.T) (*SessionService, *repository.Client) {
	t.Helper()
	db, err := repository.NewDB(":memory:", logger.Discard())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	client := repository.NewClient(db, t.TempDir(), "http://localhost:8090")
	opts := store.Options{RefetchDelay: 10 * time.Millisecond, ReconcileDelay: 10 * time.Millisecond}
	sessions := NewSessionService(client.Users, store.BackendFrom(client), opts, logger.Discard())
	t.Cleanup(func() {
		sessions.Close()
		client.Close()
	})
	return sessions, client
}

func TestSessionServiceReusesSessions(t *testing.T) {
	ctx := context.Background()
	sessions, _ := newTestSessions(t)

	first, err := sessions.ForTelegram(ctx, 42, "Ana", "Souza", "ana")
	if err != nil {
		t.Fatalf("ForTelegram: %v", err)
	}
	second, err := sessions.ForTelegram(ctx, 42, "Ana", "Souza", "ana")
	if err != nil {
		t.Fatalf("ForTelegram again: %v", err)
	}
	if first != second {
		t.Fatal("same telegram user got two sessions")
	}
	if first.Identity.DisplayName != "Ana Souza" {
		t.Fatalf("identity = %+v", first.Identity)
	}

	resumed, err := sessions.ForUser(ctx, first.Identity.UserID)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if resumed != first {
		t.Fatal("ForUser opened a new session for a cached user")
	}

	byEmail, err := sessions.ForEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("ForEmail: %v", err)
	}
	if byEmail == first || sessions.Count() != 2 {
		t.Fatalf("sessions = %d, want 2 distinct", sessions.Count())
	}

	users, err := sessions.TelegramUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("TelegramUsers = %v, %v", users, err)
	}
}

func TestSessionServiceRejectsBadEmail(t *testing.T) {
	sessions, _ := newTestSessions(t)
	if _, err := sessions.ForEmail(context.Background(), "not-an-email"); err == nil {
		t.Fatal("expected an error")
	}
	if sessions.Count() != 0 {
		t.Fatal("session opened for a rejected email")
	}
}

// gatedTasks blocks the first task listing after arm until release is closed.
type gatedTasks struct {
	store.TaskBackend

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTasks) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedTasks) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	entered, release := g.entered, g.release
	g.mu.Unlock()
	if armed {
		close(entered)
		<-release
	}
	return g.TaskBackend.ListByUser(ctx, userID)
}

func TestSessionServiceOpeningDoesNotBlockCachedUsers(t *testing.T) {
	ctx := context.Background()
	db, err := repository.NewDB(":memory:", logger.Discard())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	client := repository.NewClient(db, t.TempDir(), "http://localhost:8090")
	backend := store.BackendFrom(client)
	gate := &gatedTasks{TaskBackend: backend.Tasks}
	backend.Tasks = gate
	sessions := NewSessionService(client.Users, backend, store.Options{RefetchDelay: 10 * time.Millisecond}, logger.Discard())
	t.Cleanup(func() {
		sessions.Close()
		client.Close()
	})

	ana, err := sessions.ForEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("ForEmail(ana): %v", err)
	}

	gate.arm()
	opened := make(chan error, 1)
	go func() {
		_, err := sessions.ForEmail(ctx, "bob@example.com")
		opened <- err
	}()
	<-gate.entered

	resumed := make(chan *store.Session, 1)
	go func() {
		sess, _ := sessions.ForUser(ctx, ana.Identity.UserID)
		resumed <- sess
	}()
	select {
	case sess := <-resumed:
		if sess != ana {
			t.Fatal("ForUser returned a different session for a cached user")
		}
	case <-time.After(time.Second):
		t.Fatal("cached lookup blocked while another session was opening")
	}

	close(gate.release)
	if err := <-opened; err != nil {
		t.Fatalf("ForEmail(bob): %v", err)
	}
	if sessions.Count() != 2 {
		t.Fatalf("Count = %d, want 2", sessions.Count())
	}
}
