// Package store keeps an in-memory mirror of one user's rows for each entity
// type and mediates every write to the data service.
//
// Collections are rebuilt wholesale on every fetch. Change notifications never
// patch a collection directly; they schedule a debounced full fetch instead,
// trading redundant reads for the absence of any merge logic. A generation
// counter stops a slow, older fetch from overwriting newer state.
package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

const (
	defaultRefetchDelay   = 200 * time.Millisecond
	defaultReconcileDelay = 100 * time.Millisecond
	backgroundTimeout     = 30 * time.Second
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// FallbackMessage is shown when an error carries no message of its own.
const FallbackMessage = "Não foi possível salvar. Tente novamente."

// UserMessage is the text a form shows for a failed operation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FallbackMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}

type TaskBackend interface {
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type CategoryBackend interface {
	ListByUser(ctx context.Context, userID string) ([]model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, userID, id string, patch model.CategoryPatch) (*model.Category, error)
	Delete(ctx context.Context, userID, id string) error
}

type SettingsBackend interface {
	Get(ctx context.Context, userID string) (*model.UserSettings, error)
	Create(ctx context.Context, settings *model.UserSettings) error
	Update(ctx context.Context, userID string, patch model.SettingsPatch) (*model.UserSettings, error)
}

type ProfileBackend interface {
	Get(ctx context.Context, userID string) (*model.UserProfile, error)
	Create(ctx context.Context, profile *model.UserProfile) error
	Update(ctx context.Context, userID string, patch model.ProfilePatch) (*model.UserProfile, error)
}

// ChangeFeed delivers row changes for one owner's rows in one table.
type ChangeFeed interface {
	Subscribe(table, userID string, fn func(model.ChangeEvent)) (unsubscribe func())
}

type BlobStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, paths ...string) error
	Upload(ctx context.Context, objectPath string, r io.Reader) error
	PublicURL(objectPath string) string
}

// Backend bundles the data service handles a session needs.
type Backend struct {
	Tasks      TaskBackend
	Categories CategoryBackend
	Settings   SettingsBackend
	Profiles   ProfileBackend
	Feed       ChangeFeed
	Avatars    BlobStore
}

// BackendFrom adapts a repository client.
func BackendFrom(c *repository.Client) Backend {
	return Backend{
		Tasks:      c.Tasks,
		Categories: c.Categories,
		Settings:   c.Settings,
		Profiles:   c.Profiles,
		Feed:       c.Feed,
		Avatars:    c.Avatars,
	}
}

// Options tune timing and logging. Zero values pick the defaults.
type Options struct {
	RefetchDelay   time.Duration
	ReconcileDelay time.Duration
	Log            *logrus.Entry
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RefetchDelay <= 0 {
		o.RefetchDelay = defaultRefetchDelay
	}
	if o.ReconcileDelay <= 0 {
		o.ReconcileDelay = defaultReconcileDelay
	}
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Log = logrus.NewEntry(l)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
