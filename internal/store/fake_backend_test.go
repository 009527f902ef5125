package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

var errNetwork = &repository.Error{Op: "remote call", Code: repository.CodeUnknown, Err: errors.New("network down")}

var testNow = time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		RefetchDelay:   20 * time.Millisecond,
		ReconcileDelay: 10 * time.Millisecond,
		Now:            func() time.Time { return testNow },
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeTasks struct {
	mu   sync.Mutex
	feed *repository.Feed
	rows map[string]model.Task
	next int

	listCalls   int
	listHook    func(call int)
	updateCalls int
	// updateHook runs before each update; a non-nil result fails that call.
	updateHook func(call int) error

	failList   error
	failCreate error
	failUpdate error
	failDelete error
}

func newFakeTasks(feed *repository.Feed) *fakeTasks {
	return &fakeTasks{feed: feed, rows: make(map[string]model.Task)}
}

func (f *fakeTasks) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeTasks) ListByUser(_ context.Context, userID string) ([]model.Task, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	hook := f.listHook
	fail := f.failList
	var out []model.Task
	for _, t := range f.rows {
		if t.UserID == userID {
			out = append(out, t.Clone())
		}
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if hook != nil {
		hook(call)
	}
	if fail != nil {
		return nil, fail
	}
	return out, nil
}

func (f *fakeTasks) Create(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	if f.failCreate != nil {
		f.mu.Unlock()
		return f.failCreate
	}
	f.next++
	task.ID = fmt.Sprintf("t-%d", f.next)
	task.CreatedAt = testNow.Add(-time.Hour).Add(time.Duration(f.next) * time.Second)
	task.UpdatedAt = task.CreatedAt
	f.rows[task.ID] = task.Clone()
	f.mu.Unlock()

	f.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeInsert, UserID: task.UserID, RowID: task.ID})
	return nil
}

func (f *fakeTasks) Update(_ context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	f.mu.Lock()
	f.updateCalls++
	call := f.updateCalls
	hook := f.updateHook
	f.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	if f.failUpdate != nil {
		f.mu.Unlock()
		return nil, f.failUpdate
	}
	t, ok := f.rows[taskID]
	if !ok || t.UserID != userID {
		f.mu.Unlock()
		return nil, &repository.Error{Op: "update task", Code: repository.CodeNotFound}
	}
	patch.Apply(&t)
	f.rows[taskID] = t
	f.mu.Unlock()

	f.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeUpdate, UserID: userID, RowID: taskID})
	out := t.Clone()
	return &out, nil
}

func (f *fakeTasks) Delete(_ context.Context, userID, taskID string) error {
	f.mu.Lock()
	if f.failDelete != nil {
		f.mu.Unlock()
		return f.failDelete
	}
	t, ok := f.rows[taskID]
	if !ok || t.UserID != userID {
		f.mu.Unlock()
		return &repository.Error{Op: "delete task", Code: repository.CodeNotFound}
	}
	delete(f.rows, taskID)
	f.mu.Unlock()

	f.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeDelete, UserID: userID, RowID: taskID})
	return nil
}

// put stores a row without publishing, as if another session wrote it
// before we subscribed.
func (f *fakeTasks) put(t model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[t.ID] = t.Clone()
}

type fakeCategories struct {
	mu   sync.Mutex
	feed *repository.Feed
	rows map[string]model.Category
	next int
	fail error

	listCalls int
	listHook  func(call int)
}

func newFakeCategories(feed *repository.Feed) *fakeCategories {
	return &fakeCategories{feed: feed, rows: make(map[string]model.Category)}
}

func (f *fakeCategories) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeCategories) ListByUser(_ context.Context, userID string) ([]model.Category, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	hook := f.listHook
	fail := f.fail
	var out []model.Category
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if hook != nil {
		hook(call)
	}
	if fail != nil {
		return nil, fail
	}
	return out, nil
}

// put stores a row without publishing.
func (f *fakeCategories) put(c model.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[c.ID] = c
}

func (f *fakeCategories) Create(_ context.Context, c *model.Category) error {
	f.mu.Lock()
	if f.fail != nil {
		f.mu.Unlock()
		return f.fail
	}
	f.next++
	c.ID = fmt.Sprintf("c-%d", f.next)
	c.CreatedAt = testNow
	f.rows[c.ID] = *c
	f.mu.Unlock()
	f.feed.Publish(model.ChangeEvent{Table: model.TableCategories, Type: model.ChangeInsert, UserID: c.UserID, RowID: c.ID})
	return nil
}

func (f *fakeCategories) Update(_ context.Context, userID, id string, patch model.CategoryPatch) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	c, ok := f.rows[id]
	if !ok || c.UserID != userID {
		return nil, &repository.Error{Op: "update category", Code: repository.CodeNotFound}
	}
	patch.Apply(&c)
	f.rows[id] = c
	return &c, nil
}

func (f *fakeCategories) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	c, ok := f.rows[id]
	if !ok || c.UserID != userID {
		return &repository.Error{Op: "delete category", Code: repository.CodeNotFound}
	}
	delete(f.rows, id)
	return nil
}

type fakeSettings struct {
	mu        sync.Mutex
	rows      map[string]model.UserSettings
	creates   int
	failGet   error
	beforeAdd func() // runs inside Create before the uniqueness check
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{rows: make(map[string]model.UserSettings)}
}

func (f *fakeSettings) Get(_ context.Context, userID string) (*model.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	s, ok := f.rows[userID]
	if !ok {
		return nil, &repository.Error{Op: "get settings", Code: repository.CodeNotFound}
	}
	return &s, nil
}

func (f *fakeSettings) Create(_ context.Context, s *model.UserSettings) error {
	if f.beforeAdd != nil {
		f.beforeAdd()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[s.UserID]; ok {
		return &repository.Error{Op: "create settings", Code: repository.CodeConflict}
	}
	f.creates++
	s.ID = fmt.Sprintf("s-%d", f.creates)
	f.rows[s.UserID] = *s
	return nil
}

func (f *fakeSettings) Update(_ context.Context, userID string, patch model.SettingsPatch) (*model.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[userID]
	if !ok {
		return nil, &repository.Error{Op: "update settings", Code: repository.CodeNotFound}
	}
	patch.Apply(&s)
	f.rows[userID] = s
	return &s, nil
}

type fakeProfiles struct {
	mu      sync.Mutex
	rows    map[string]model.UserProfile
	failGet error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: make(map[string]model.UserProfile)}
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	p, ok := f.rows[userID]
	if !ok {
		return nil, &repository.Error{Op: "get profile", Code: repository.CodeNotFound}
	}
	return &p, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *model.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.UserID]; ok {
		return &repository.Error{Op: "create profile", Code: repository.CodeConflict}
	}
	p.ID = "p-" + p.UserID
	f.rows[p.UserID] = *p
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, userID string, patch model.ProfilePatch) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, &repository.Error{Op: "update profile", Code: repository.CodeNotFound}
	}
	patch.Apply(&p)
	f.rows[userID] = p
	return &p, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]string
	removed []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string]string)}
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix+"/") {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeBlobs) Remove(_ context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.objects, p)
		f.removed = append(f.removed, p)
	}
	return nil
}

func (f *fakeBlobs) Upload(_ context.Context, objectPath string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectPath] = string(data)
	return nil
}

func (f *fakeBlobs) PublicURL(objectPath string) string {
	return "https://cdn.test/avatars/" + objectPath
}
