package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"taskflow/internal/metrics"
	"taskflow/internal/model"
)

const storeTasks = "tasks"

// TaskStore owns the in-memory list of one user's tasks.
type TaskStore struct {
	backend TaskBackend
	userID  string
	opts    Options
	log     *logrus.Entry

	ctx         context.Context
	cancel      context.CancelFunc
	refresh     *refresher
	unsubscribe func()

	mu       sync.RWMutex
	tasks    []model.Task
	gen      uint64
	inflight int
	loading  bool

	// pending maps a task id to the sequence number of the optimistic
	// update that currently owns its local row.
	seq     uint64
	pending map[string]uint64
}

// NewTaskStore subscribes to the user's task changes. Call Fetch for the
// initial snapshot and Close when the view goes away.
func NewTaskStore(backend TaskBackend, feed ChangeFeed, userID string, opts Options) *TaskStore {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &TaskStore{
		backend: backend,
		userID:  userID,
		opts:    opts,
		log:     opts.Log.WithFields(logrus.Fields{"store": storeTasks, "user_id": userID}),
		ctx:     ctx,
		cancel:  cancel,
		loading: true,
		pending: make(map[string]uint64),
	}
	s.refresh = newRefresher(s.backgroundFetch)
	if feed != nil {
		s.unsubscribe = feed.Subscribe(model.TableTasks, userID, s.onChange)
	}
	return s
}

func (s *TaskStore) onChange(ev model.ChangeEvent) {
	s.log.WithFields(logrus.Fields{"change": ev.Type, "row_id": ev.RowID}).Debug("task change received")
	s.refresh.schedule(s.opts.RefetchDelay, "change")
}

func (s *TaskStore) backgroundFetch(reason string) {
	ctx, cancel := context.WithTimeout(s.ctx, backgroundTimeout)
	defer cancel()
	_ = s.fetch(ctx, reason)
}

// Fetch replaces the collection with the user's tasks, newest first.
// Failures are logged and leave the collection as it was.
func (s *TaskStore) Fetch(ctx context.Context) error {
	return s.fetch(ctx, "request")
}

func (s *TaskStore) fetch(ctx context.Context, reason string) error {
	metrics.Refetches.WithLabelValues(storeTasks, reason).Inc()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.inflight++
	s.loading = true
	s.mu.Unlock()

	tasks, err := s.backend.ListByUser(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.loading = false
	}
	if err != nil {
		s.log.WithError(err).WithField("reason", reason).Error("fetch tasks")
		return err
	}
	if gen != s.gen {
		metrics.StaleFetches.WithLabelValues(storeTasks).Inc()
		s.log.WithField("generation", gen).Debug("dropping stale task snapshot")
		return nil
	}
	s.tasks = cloneTasks(tasks)
	clear(s.pending)
	s.log.WithFields(logrus.Fields{"count": len(tasks), "reason": reason}).Debug("tasks fetched")
	return nil
}

// Create inserts a task and prepends the stored row. Fields are stored as
// given; only an unset priority or status gets its default. A short reconcile
// fetch follows to pick up anything the data service filled in.
func (s *TaskStore) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	if in.Status == "" {
		in.Status = model.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if err := ValidateTaskInput(in); err != nil {
		s.log.WithError(err).Warn("create task rejected")
		return model.Task{}, err
	}

	task := model.Task{
		UserID:      s.userID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		Category:    in.Category,
		Status:      in.Status,
		Important:   in.Important,
	}
	if err := s.backend.Create(ctx, &task); err != nil {
		s.log.WithError(err).Error("create task")
		return model.Task{}, err
	}

	s.mu.Lock()
	s.gen++
	s.removeLocked(task.ID)
	s.tasks = append([]model.Task{task.Clone()}, s.tasks...)
	s.mu.Unlock()

	s.refresh.schedule(s.opts.ReconcileDelay, "reconcile")
	s.log.WithField("task_id", task.ID).Info("task created")
	return task.Clone(), nil
}

// Update writes a partial update. On success the stored row replaces the local
// one; on failure the collection is untouched.
func (s *TaskStore) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	patch.UpdatedAt = s.opts.Now()
	if err := validateTaskPatch(patch); err != nil {
		s.log.WithError(err).Warn("update task rejected")
		return model.Task{}, err
	}

	row, err := s.backend.Update(ctx, s.userID, id, patch)
	if err != nil {
		s.log.WithError(err).WithField("task_id", id).Error("update task")
		return model.Task{}, err
	}

	s.mu.Lock()
	s.gen++
	delete(s.pending, id)
	s.replaceLocked(*row)
	s.mu.Unlock()
	return row.Clone(), nil
}

// UpdateOptimistic applies patch locally before writing it, and restores the
// previous row if the write fails.
func (s *TaskStore) UpdateOptimistic(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	patch.UpdatedAt = s.opts.Now()
	if err := validateTaskPatch(patch); err != nil {
		s.log.WithError(err).Warn("update task rejected")
		return model.Task{}, err
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, ErrTaskNotFound
	}
	before := s.tasks[i].Clone()
	optimistic := before.Clone()
	patch.Apply(&optimistic)
	s.tasks[i] = optimistic
	s.gen++
	s.seq++
	mine := s.seq
	s.pending[id] = mine
	s.mu.Unlock()

	row, err := s.backend.Update(ctx, s.userID, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	owner, claimed := s.pending[id]
	owned := claimed && owner == mine
	if owned {
		delete(s.pending, id)
	}
	if err != nil {
		// Once something newer owns the row, restoring our snapshot would
		// clobber it.
		if owned {
			if j := s.indexLocked(id); j >= 0 {
				s.tasks[j] = before
			}
		}
		metrics.Rollbacks.WithLabelValues(storeTasks).Inc()
		s.log.WithError(err).WithField("task_id", id).Warn("optimistic task update rolled back")
		return model.Task{}, err
	}
	if !claimed || owned {
		s.replaceLocked(*row)
	}
	return row.Clone(), nil
}

// Delete removes the task once the data service confirms it.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, s.userID, id); err != nil {
		s.log.WithError(err).WithField("task_id", id).Error("delete task")
		return err
	}
	s.mu.Lock()
	s.gen++
	delete(s.pending, id)
	s.removeLocked(id)
	s.mu.Unlock()
	s.log.WithField("task_id", id).Info("task deleted")
	return nil
}

// MoveToNextDay pushes the due date to one day after now and raises the
// priority one step.
func (s *TaskStore) MoveToNextDay(ctx context.Context, id string) (model.Task, error) {
	task, ok := s.Get(id)
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	tomorrow := s.opts.Now().AddDate(0, 0, 1)
	priority := task.Priority.Escalate()
	return s.Update(ctx, id, model.TaskPatch{DueDate: &tomorrow, Priority: &priority})
}

// SetStatus moves a task to another column optimistically.
func (s *TaskStore) SetStatus(ctx context.Context, id string, status model.Status) (model.Task, error) {
	return s.UpdateOptimistic(ctx, id, model.TaskPatch{Status: &status})
}

// Tasks returns a copy of the collection.
func (s *TaskStore) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// Loading reports whether a fetch is in flight or none has finished yet.
func (s *TaskStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *TaskStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.refresh.stop()
	s.cancel()
}

func (s *TaskStore) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) replaceLocked(task model.Task) {
	if i := s.indexLocked(task.ID); i >= 0 {
		s.tasks[i] = task.Clone()
	}
}

func (s *TaskStore) removeLocked(id string) {
	out := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	s.tasks = out
}

func cloneTasks(in []model.Task) []model.Task {
	out := make([]model.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
