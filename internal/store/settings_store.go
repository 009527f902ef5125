package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// SettingsStore holds the user's settings row, creating it with defaults the
// first time it is read. Settings are assumed to change from one session at
// a time, so there is no change subscription.
type SettingsStore struct {
	backend SettingsBackend
	userID  string
	log     *logrus.Entry

	fetchMu  sync.Mutex
	mu       sync.RWMutex
	settings *model.UserSettings
	loading  bool
}

func NewSettingsStore(backend SettingsBackend, userID string, opts Options) *SettingsStore {
	opts = opts.withDefaults()
	return &SettingsStore{
		backend: backend,
		userID:  userID,
		log:     opts.Log.WithFields(logrus.Fields{"store": "settings", "user_id": userID}),
		loading: true,
	}
}

// Fetch returns the stored settings, inserting the defaults if there is no row.
func (s *SettingsStore) Fetch(ctx context.Context) (model.UserSettings, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	row, err := s.fetchOrCreate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.log.WithError(err).Error("fetch settings")
		return model.UserSettings{}, err
	}
	s.settings = row
	return *row, nil
}

func (s *SettingsStore) fetchOrCreate(ctx context.Context) (*model.UserSettings, error) {
	row, err := s.backend.Get(ctx, s.userID)
	if err == nil {
		return row, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	defaults := model.DefaultSettings(s.userID)
	err = s.backend.Create(ctx, &defaults)
	switch {
	case err == nil:
		s.log.Info("default settings created")
		return &defaults, nil
	case repository.IsConflict(err):
		// Another session created the row between our read and insert.
		return s.backend.Get(ctx, s.userID)
	default:
		return nil, err
	}
}

func (s *SettingsStore) Update(ctx context.Context, patch model.SettingsPatch) (model.UserSettings, error) {
	if err := validateSettingsPatch(patch); err != nil {
		s.log.WithError(err).Warn("update settings rejected")
		return model.UserSettings{}, err
	}
	row, err := s.backend.Update(ctx, s.userID, patch)
	if err != nil {
		s.log.WithError(err).Error("update settings")
		return model.UserSettings{}, err
	}
	s.mu.Lock()
	s.settings = row
	s.mu.Unlock()
	return *row, nil
}

func (s *SettingsStore) UpdateTheme(ctx context.Context, theme model.Theme) (model.UserSettings, error) {
	return s.Update(ctx, model.SettingsPatch{Theme: &theme})
}

func (s *SettingsStore) UpdateDefaultView(ctx context.Context, view model.View) (model.UserSettings, error) {
	return s.Update(ctx, model.SettingsPatch{DefaultView: &view})
}

func (s *SettingsStore) UpdateColorTheme(ctx context.Context, palette string) (model.UserSettings, error) {
	return s.Update(ctx, model.SettingsPatch{ColorTheme: &palette})
}

// Settings returns the loaded settings, if any.
func (s *SettingsStore) Settings() (model.UserSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return model.UserSettings{}, false
	}
	return *s.settings, true
}

func (s *SettingsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
