package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

var avatarExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// ProfileStore holds the user's profile row, seeding it from the signed-in
// identity the first time it is read.
type ProfileStore struct {
	backend  ProfileBackend
	avatars  BlobStore
	identity model.Identity
	now      func() time.Time
	log      *logrus.Entry

	fetchMu sync.Mutex
	mu      sync.RWMutex
	profile *model.UserProfile
	loading bool
}

func NewProfileStore(backend ProfileBackend, avatars BlobStore, identity model.Identity, opts Options) *ProfileStore {
	opts = opts.withDefaults()
	return &ProfileStore{
		backend:  backend,
		avatars:  avatars,
		identity: identity,
		now:      opts.Now,
		log:      opts.Log.WithFields(logrus.Fields{"store": "profile", "user_id": identity.UserID}),
		loading:  true,
	}
}

func (s *ProfileStore) Fetch(ctx context.Context) (model.UserProfile, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	row, err := s.fetchOrCreate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.log.WithError(err).Error("fetch profile")
		return model.UserProfile{}, err
	}
	s.profile = row
	return *row, nil
}

func (s *ProfileStore) fetchOrCreate(ctx context.Context) (*model.UserProfile, error) {
	row, err := s.backend.Get(ctx, s.identity.UserID)
	if err == nil {
		return row, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	seed := model.UserProfile{
		UserID:      s.identity.UserID,
		Email:       s.identity.Email,
		DisplayName: s.identity.Name(),
	}
	err = s.backend.Create(ctx, &seed)
	switch {
	case err == nil:
		s.log.Info("profile created")
		return &seed, nil
	case repository.IsConflict(err):
		return s.backend.Get(ctx, s.identity.UserID)
	default:
		return nil, err
	}
}

func (s *ProfileStore) Update(ctx context.Context, patch model.ProfilePatch) (model.UserProfile, error) {
	if err := validateProfilePatch(patch); err != nil {
		s.log.WithError(err).Warn("update profile rejected")
		return model.UserProfile{}, err
	}
	row, err := s.backend.Update(ctx, s.identity.UserID, patch)
	if err != nil {
		s.log.WithError(err).Error("update profile")
		return model.UserProfile{}, err
	}
	s.mu.Lock()
	s.profile = row
	s.mu.Unlock()
	return *row, nil
}

// UploadAvatar replaces whatever avatar the user had with r and returns the
// new public URL. It does not touch the profile row.
func (s *ProfileStore) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	if !avatarExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported image type %q", ErrInvalidInput, ext)
	}

	folder := s.identity.UserID
	existing, err := s.avatars.List(ctx, folder)
	if err != nil {
		s.log.WithError(err).Error("list avatars")
		return "", err
	}
	if len(existing) > 0 {
		if err := s.avatars.Remove(ctx, existing...); err != nil {
			s.log.WithError(err).Error("remove old avatars")
			return "", err
		}
	}

	object := path.Join(folder, fmt.Sprintf("avatar-%d%s", s.now().UnixNano(), ext))
	if err := s.avatars.Upload(ctx, object, r); err != nil {
		s.log.WithError(err).Error("upload avatar")
		return "", err
	}
	url := s.avatars.PublicURL(object)
	s.log.WithField("object", object).Info("avatar uploaded")
	return url, nil
}

func (s *ProfileStore) Profile() (model.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.UserProfile{}, false
	}
	return *s.profile, true
}

func (s *ProfileStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
