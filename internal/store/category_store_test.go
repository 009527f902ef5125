package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

func newTestCategoryStore(t *testing.T) (*CategoryStore, *fakeCategories) {
	t.Helper()
	feed := repository.NewFeed()
	backend := newFakeCategories(feed)
	s := NewCategoryStore(backend, feed, userID, testOptions())
	t.Cleanup(s.Close)
	if err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	return s, backend
}

func names(cs []model.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestCategoryStoreKeepsNameOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCategoryStore(t)

	for _, n := range []string{"Work", "Home", "Study"} {
		if _, err := s.Create(ctx, n, "#fff"); err != nil {
			t.Fatalf("Create(%s): %v", n, err)
		}
	}
	got := names(s.Categories())
	want := []string{"Home", "Study", "Work"}
	if len(got) != len(want) {
		t.Fatalf("Categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Categories = %v, want %v", got, want)
		}
	}

	home, ok := s.ByName("Home")
	if !ok {
		t.Fatal("ByName(Home) not found")
	}
	renamed := "Zuhause"
	if _, err := s.Update(ctx, home.ID, model.CategoryPatch{Name: &renamed}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got = names(s.Categories())
	if got[len(got)-1] != "Zuhause" {
		t.Fatalf("renamed category not re-sorted: %v", got)
	}

	if err := s.Delete(ctx, home.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.ByName("Zuhause"); ok {
		t.Fatal("deleted category still present")
	}
}

func TestCategoryStoreValidation(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestCategoryStore(t)

	if _, err := s.Create(ctx, "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name err = %v, want ErrInvalidInput", err)
	}
	if len(backend.rows) != 0 {
		t.Fatal("invalid category reached the backend")
	}
	if _, err := s.Update(ctx, "c-1", model.CategoryPatch{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty patch err = %v, want ErrInvalidInput", err)
	}
}

func TestCategoryStoreFailureLeavesCollection(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestCategoryStore(t)
	if _, err := s.Create(ctx, "Home", "blue"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	backend.mu.Lock()
	backend.fail = errNetwork
	backend.mu.Unlock()

	home, _ := s.ByName("Home")
	if err := s.Delete(ctx, home.ID); !errors.Is(err, errNetwork) {
		t.Fatalf("err = %v, want network error", err)
	}
	if len(s.Categories()) != 1 {
		t.Fatal("category removed although delete failed")
	}
}

func TestCategoryStoreChangeBurstTriggersOneFetch(t *testing.T) {
	s, backend := newTestCategoryStore(t)
	backend.put(model.Category{ID: "remote", UserID: userID, Name: "Errands", CreatedAt: testNow})
	before := backend.calls()

	for i := 0; i < 5; i++ {
		backend.feed.Publish(model.ChangeEvent{Table: model.TableCategories, Type: model.ChangeInsert, UserID: userID, RowID: "remote"})
	}

	waitFor(t, "refetch after category change", func() bool {
		_, ok := s.ByName("Errands")
		return ok
	})
	time.Sleep(60 * time.Millisecond)
	if got := backend.calls() - before; got != 1 {
		t.Fatalf("fetches after burst = %d, want 1", got)
	}
}

func TestCategoryStoreIgnoresTaskChanges(t *testing.T) {
	_, backend := newTestCategoryStore(t)
	before := backend.calls()
	backend.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeInsert, UserID: userID, RowID: "t"})
	time.Sleep(60 * time.Millisecond)
	if backend.calls() != before {
		t.Fatal("task change triggered a category fetch")
	}
}

func TestCategoryStoreDiscardsStaleFetch(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestCategoryStore(t)
	backend.put(model.Category{ID: "c-old", UserID: userID, Name: "Home", CreatedAt: testNow})

	started := make(chan struct{})
	release := make(chan struct{})
	slowCall := backend.calls() + 1
	backend.mu.Lock()
	backend.listHook = func(call int) {
		if call == slowCall {
			close(started)
			<-release
		}
	}
	backend.mu.Unlock()

	slow := make(chan error, 1)
	go func() { slow <- s.Fetch(ctx) }()
	<-started

	backend.put(model.Category{ID: "c-new", UserID: userID, Name: "Work", CreatedAt: testNow})
	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	close(release)
	if err := <-slow; err != nil {
		t.Fatalf("slow Fetch: %v", err)
	}

	got := names(s.Categories())
	if len(got) != 2 || got[0] != "Home" || got[1] != "Work" {
		t.Fatalf("stale snapshot won: %v", got)
	}
	if s.Loading() {
		t.Fatal("loading flag still set")
	}
}
