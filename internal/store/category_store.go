package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"taskflow/internal/metrics"
	"taskflow/internal/model"
)

const storeCategories = "categories"

// CategoryStore mirrors one user's categories, ordered by name.
type CategoryStore struct {
	backend CategoryBackend
	userID  string
	opts    Options
	log     *logrus.Entry

	ctx         context.Context
	cancel      context.CancelFunc
	refresh     *refresher
	unsubscribe func()

	mu         sync.RWMutex
	categories []model.Category
	gen        uint64
	inflight   int
	loading    bool
}

func NewCategoryStore(backend CategoryBackend, feed ChangeFeed, userID string, opts Options) *CategoryStore {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &CategoryStore{
		backend: backend,
		userID:  userID,
		opts:    opts,
		log:     opts.Log.WithFields(logrus.Fields{"store": storeCategories, "user_id": userID}),
		ctx:     ctx,
		cancel:  cancel,
		loading: true,
	}
	s.refresh = newRefresher(func(reason string) {
		ctx, cancel := context.WithTimeout(s.ctx, backgroundTimeout)
		defer cancel()
		_ = s.fetch(ctx, reason)
	})
	if feed != nil {
		s.unsubscribe = feed.Subscribe(model.TableCategories, userID, func(ev model.ChangeEvent) {
			s.log.WithFields(logrus.Fields{"change": ev.Type, "row_id": ev.RowID}).Debug("category change received")
			s.refresh.schedule(s.opts.RefetchDelay, "change")
		})
	}
	return s
}

func (s *CategoryStore) Fetch(ctx context.Context) error {
	return s.fetch(ctx, "request")
}

func (s *CategoryStore) fetch(ctx context.Context, reason string) error {
	metrics.Refetches.WithLabelValues(storeCategories, reason).Inc()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.inflight++
	s.loading = true
	s.mu.Unlock()

	categories, err := s.backend.ListByUser(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.loading = false
	}
	if err != nil {
		s.log.WithError(err).Error("fetch categories")
		return err
	}
	if gen != s.gen {
		metrics.StaleFetches.WithLabelValues(storeCategories).Inc()
		return nil
	}
	s.categories = append([]model.Category(nil), categories...)
	return nil
}

func (s *CategoryStore) Create(ctx context.Context, name, color string) (model.Category, error) {
	if err := validateCategory(name, color); err != nil {
		s.log.WithError(err).Warn("create category rejected")
		return model.Category{}, err
	}

	category := model.Category{UserID: s.userID, Name: name, Color: color}
	if err := s.backend.Create(ctx, &category); err != nil {
		s.log.WithError(err).Error("create category")
		return model.Category{}, err
	}

	s.mu.Lock()
	s.gen++
	s.removeLocked(category.ID)
	s.categories = insertByName(s.categories, category)
	s.mu.Unlock()

	s.refresh.schedule(s.opts.ReconcileDelay, "reconcile")
	return category, nil
}

// Update renames or recolors a category. Tasks that reference the old name
// keep it.
func (s *CategoryStore) Update(ctx context.Context, id string, patch model.CategoryPatch) (model.Category, error) {
	if err := validateCategoryPatch(patch); err != nil {
		s.log.WithError(err).Warn("update category rejected")
		return model.Category{}, err
	}

	row, err := s.backend.Update(ctx, s.userID, id, patch)
	if err != nil {
		s.log.WithError(err).WithField("category_id", id).Error("update category")
		return model.Category{}, err
	}

	s.mu.Lock()
	s.gen++
	s.removeLocked(id)
	s.categories = insertByName(s.categories, *row)
	s.mu.Unlock()
	return *row, nil
}

func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, s.userID, id); err != nil {
		s.log.WithError(err).WithField("category_id", id).Error("delete category")
		return err
	}
	s.mu.Lock()
	s.gen++
	s.removeLocked(id)
	s.mu.Unlock()
	return nil
}

func (s *CategoryStore) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.categories...)
}

// ByName finds a category by its exact name.
func (s *CategoryStore) ByName(name string) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Name == name {
			return c, true
		}
	}
	return model.Category{}, false
}

func (s *CategoryStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *CategoryStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.refresh.stop()
	s.cancel()
}

func (s *CategoryStore) removeLocked(id string) {
	out := s.categories[:0]
	for _, c := range s.categories {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.categories = out
}

func insertByName(list []model.Category, c model.Category) []model.Category {
	i := 0
	for i < len(list) && list[i].Name <= c.Name {
		i++
	}
	list = append(list, model.Category{})
	copy(list[i+1:], list[i:])
	list[i] = c
	return list
}
