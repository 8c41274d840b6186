package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/BemoBit/po-translator/cache"
)

// fakeBackend appends a marker to every text so tests can tell
// translated fields apart from untouched ones.
type fakeBackend struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
	panic map[string]bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.panic[text] {
		panic("backend blew up")
	}
	if f.fail[text] {
		return "", fmt.Errorf("simulated failure for %q", text)
	}
	return text + "[T]", nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testStore(t *testing.T) *cache.Store {
	t.Helper()
	return cache.Open(cache.Options{Path: filepath.Join(t.TempDir(), "cache.yaml")})
}

func collectAll(t *testing.T, p *Pool, want int) []Result {
	t.Helper()
	var results []Result
	for r := range p.Results() {
		results = append(results, r)
		if len(results) == want {
			p.Close()
		}
	}
	return results
}

func TestPoolTranslatesEveryTaskExactlyOnce(t *testing.T) {
	fb := &fakeBackend{}
	coord := NewCoordinator()
	p := NewPool(PoolConfig{
		Workers:    3,
		Backend:    fb,
		Cache:      testStore(t),
		SourceLang: "en",
		TargetLang: "fa",
	}, coord)
	p.Start()

	const n = 20
	go func() {
		for i := 0; i < n; i++ {
			p.Dispatch(Task{EntryIndex: i, PluralIndex: SingularField, Text: fmt.Sprintf("text %d", i)})
		}
	}()

	results := collectAll(t, p, n)
	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}

	seen := make(map[int]bool)
	for _, r := range results {
		if seen[r.EntryIndex] {
			t.Fatalf("entry %d processed twice", r.EntryIndex)
		}
		seen[r.EntryIndex] = true
		want := fmt.Sprintf("text %d[T]", r.EntryIndex)
		if r.Text != want {
			t.Fatalf("entry %d text = %q, want %q", r.EntryIndex, r.Text, want)
		}
		if r.Degraded || r.FromCache {
			t.Fatalf("entry %d unexpectedly degraded=%v fromCache=%v", r.EntryIndex, r.Degraded, r.FromCache)
		}
	}
}

func TestPoolServesCacheHitsWithoutBackendCall(t *testing.T) {
	fb := &fakeBackend{}
	store := testStore(t)
	store.Store("Hello", "سلام", "en", "fa")

	coord := NewCoordinator()
	p := NewPool(PoolConfig{Workers: 1, Backend: fb, Cache: store, SourceLang: "en", TargetLang: "fa"}, coord)
	p.Start()
	p.Dispatch(Task{EntryIndex: 0, PluralIndex: SingularField, Text: "Hello"})

	results := collectAll(t, p, 1)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	r := results[0]
	if !r.FromCache || r.Text != "سلام" {
		t.Fatalf("result = %+v, want cached سلام", r)
	}
	if fb.callCount() != 0 {
		t.Fatalf("backend called %d times for a cache hit", fb.callCount())
	}
}

func TestPoolDegradesOnBackendFailureAndDoesNotCache(t *testing.T) {
	fb := &fakeBackend{fail: map[string]bool{"bad": true}}
	store := testStore(t)

	coord := NewCoordinator()
	p := NewPool(PoolConfig{Workers: 1, Backend: fb, Cache: store, SourceLang: "en", TargetLang: "fa"}, coord)
	p.Start()
	p.Dispatch(Task{EntryIndex: 0, PluralIndex: SingularField, Text: "bad"})
	p.Dispatch(Task{EntryIndex: 1, PluralIndex: SingularField, Text: "good"})

	results := collectAll(t, p, 2)

	byEntry := map[int]Result{}
	for _, r := range results {
		byEntry[r.EntryIndex] = r
	}
	if r := byEntry[0]; !r.Degraded || r.Text != "bad" {
		t.Fatalf("failed task should degrade to source text, got %+v", r)
	}
	if r := byEntry[1]; r.Degraded || r.Text != "good[T]" {
		t.Fatalf("healthy task = %+v", r)
	}

	// A degraded result must stay retryable on the next run.
	if _, ok := store.Lookup("bad", "en", "fa"); ok {
		t.Fatal("degraded translation must not be cached")
	}
	if v, ok := store.Lookup("good", "en", "fa"); !ok || v != "good[T]" {
		t.Fatalf("successful translation should be cached, got %q %v", v, ok)
	}
}

func TestPoolSurvivesWorkerPanic(t *testing.T) {
	fb := &fakeBackend{panic: map[string]bool{"boom": true}}
	coord := NewCoordinator()
	p := NewPool(PoolConfig{Workers: 1, Backend: fb, Cache: testStore(t), SourceLang: "en", TargetLang: "fa"}, coord)
	p.Start()
	p.Dispatch(Task{EntryIndex: 0, PluralIndex: SingularField, Text: "boom"})
	p.Dispatch(Task{EntryIndex: 1, PluralIndex: SingularField, Text: "fine"})

	results := collectAll(t, p, 2)
	byEntry := map[int]Result{}
	for _, r := range results {
		byEntry[r.EntryIndex] = r
	}
	if r := byEntry[0]; !r.Degraded || r.Text != "boom" {
		t.Fatalf("panicking task should degrade, got %+v", r)
	}
	if r := byEntry[1]; r.Degraded {
		t.Fatalf("worker did not survive the panic: %+v", r)
	}
}

func TestPoolPassesWhitespaceThrough(t *testing.T) {
	fb := &fakeBackend{}
	coord := NewCoordinator()
	p := NewPool(PoolConfig{Workers: 1, Backend: fb, Cache: testStore(t), SourceLang: "en", TargetLang: "fa"}, coord)
	p.Start()
	p.Dispatch(Task{EntryIndex: 0, PluralIndex: SingularField, Text: "   "})

	results := collectAll(t, p, 1)
	if results[0].Text != "   " || results[0].Degraded {
		t.Fatalf("whitespace result = %+v", results[0])
	}
	if fb.callCount() != 0 {
		t.Fatal("whitespace text must never reach the backend")
	}
}

func TestDispatchRefusesAfterCancellation(t *testing.T) {
	coord := NewCoordinator()
	p := NewPool(PoolConfig{Workers: 1, Backend: &fakeBackend{}, Cache: testStore(t)}, coord)
	p.Start()

	coord.Request()
	if p.Dispatch(Task{EntryIndex: 0, Text: "late"}) {
		t.Fatal("Dispatch should refuse tasks after cancellation")
	}
	p.Close()
	p.Wait()
}
