package store

import (
	"context"

	"taskflow/internal/model"
)

// Session bundles the stores of one signed-in user.
type Session struct {
	Identity   model.Identity
	Tasks      *TaskStore
	Categories *CategoryStore
	Settings   *SettingsStore
	Profile    *ProfileStore
}

// OpenSession builds every store for id and loads its first snapshot.
// Fetch failures are logged by the stores; the affected collections stay empty.
func OpenSession(ctx context.Context, b Backend, id model.Identity, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		Identity:   id,
		Tasks:      NewTaskStore(b.Tasks, b.Feed, id.UserID, opts),
		Categories: NewCategoryStore(b.Categories, b.Feed, id.UserID, opts),
		Settings:   NewSettingsStore(b.Settings, id.UserID, opts),
		Profile:    NewProfileStore(b.Profiles, b.Avatars, id, opts),
	}
	_ = s.Tasks.Fetch(ctx)
	_ = s.Categories.Fetch(ctx)
	_, _ = s.Settings.Fetch(ctx)
	_, _ = s.Profile.Fetch(ctx)
	return s
}

// Close drops the change subscriptions and any pending refetch.
func (s *Session) Close() {
	s.Tasks.Close()
	s.Categories.Close()
}
