package announcer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/twhitfield/ghost-discord-bot/internal/config"
	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/store"
)

// --- Mock implementations ---

type mockSource struct {
	posts   []ghost.Post
	err     error
	fetches int
}

func (m *mockSource) LatestPosts(_ context.Context, _ int) (*ghost.PostsResponse, error) {
	m.fetches++
	if m.err != nil {
		return nil, m.err
	}
	return &ghost.PostsResponse{Posts: m.posts}, nil
}

type mockStore struct {
	mu         sync.Mutex
	lastPosted *store.LastPosted
	settings   map[string]string
	getErr     error
	closed     int
}

func newMockStore() *mockStore {
	return &mockStore{settings: make(map[string]string)}
}

func (m *mockStore) GetLastPosted(_ context.Context) (*store.LastPosted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.lastPosted == nil {
		return nil, nil
	}
	lp := *m.lastPosted
	return &lp, nil
}

func (m *mockStore) SaveLastPosted(_ context.Context, lp store.LastPosted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPosted = &lp
	return nil
}

func (m *mockStore) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[key], nil
}

func (m *mockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

type mockNotifier struct {
	mu        sync.Mutex
	announced []string
	failing   map[string]bool
	block     chan struct{} // when set, AnnouncePost waits until closed
}

func (m *mockNotifier) AnnouncePost(_ context.Context, _ string, post ghost.Post) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[post.Title] {
		return errors.New("delivery rejected")
	}
	m.announced = append(m.announced, post.Title)
	return nil
}

func (m *mockNotifier) titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.announced...)
}

// --- Helpers ---

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// postAt builds a post published at baseTime + offset hours.
func postAt(offset int, title string) ghost.Post {
	t := baseTime.Add(time.Duration(offset) * time.Hour)
	return ghost.Post{
		ID:          title,
		Title:       title,
		URL:         "https://blog/" + title,
		PublishedAt: &t,
	}
}

func newTestAnnouncer(src *mockSource, st *mockStore, n *mockNotifier) *Announcer {
	a := New(src, st, n, &config.Config{
		AutoPostEnabled:   true,
		AutoPostChannelID: "chan-1",
		CheckInterval:     15 * time.Minute,
	})
	a.postDelay = time.Millisecond
	return a
}

// --- Tests ---

func TestCheckOnce_DeliversOnlyNewerPostsInOrder(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{
		postAt(2, "T+2"), postAt(1, "T+1"), postAt(0, "T"), postAt(-1, "T-1"),
	}}
	st := newMockStore()
	st.lastPosted = &store.LastPosted{PostID: "T", PublishedAt: baseTime}
	n := &mockNotifier{}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() returned error: %v", err)
	}

	got := n.titles()
	if len(got) != 2 || got[0] != "T+1" || got[1] != "T+2" {
		t.Errorf("expected chronological delivery [T+1 T+2], got %v", got)
	}
	if st.lastPosted.PostID != "T+2" {
		t.Errorf("expected T+2 recorded as last posted, got %s", st.lastPosted.PostID)
	}
}

func TestCheckOnce_NothingNew(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{postAt(0, "T"), postAt(-1, "T-1")}}
	st := newMockStore()
	st.lastPosted = &store.LastPosted{PostID: "T", PublishedAt: baseTime}
	n := &mockNotifier{}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.titles()) != 0 {
		t.Errorf("expected no deliveries, got %v", n.titles())
	}
}

func TestCheckOnce_FirstRunDeliversWholeWindow(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{postAt(2, "c"), postAt(1, "b"), postAt(0, "a")}}
	st := newMockStore()
	n := &mockNotifier{}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := n.titles()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestCheckOnce_Reentrancy(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{postAt(1, "T+1")}}
	st := newMockStore()
	n := &mockNotifier{block: make(chan struct{})}

	a := newTestAnnouncer(src, st, n)

	done := make(chan error, 1)
	go func() { done <- a.CheckOnce(context.Background()) }()

	// Wait for the first cycle to reach its delivery (and block there).
	deadline := time.After(2 * time.Second)
	for !a.GetStatus().Running {
		select {
		case <-deadline:
			t.Fatal("first cycle never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// A second trigger while the first is checking must be a no-op.
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatalf("skipped trigger should not error: %v", err)
	}
	if src.fetches != 1 {
		t.Errorf("second trigger must not fetch, got %d fetches", src.fetches)
	}

	close(n.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := n.titles(); len(got) != 1 {
		t.Errorf("expected exactly one delivery, got %v", got)
	}
}

func TestCheckOnce_PartialDeliveryFailure(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{postAt(2, "T+2"), postAt(1, "T+1"), postAt(0, "T")}}
	st := newMockStore()
	st.lastPosted = &store.LastPosted{PostID: "T", PublishedAt: baseTime}
	n := &mockNotifier{failing: map[string]bool{"T+1": true}}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	// T+1 failed and is not recorded; T+2 was still attempted and wins
	// the last-posted record.
	if got := n.titles(); len(got) != 1 || got[0] != "T+2" {
		t.Errorf("expected only T+2 delivered, got %v", got)
	}
	if st.lastPosted.PostID != "T+2" {
		t.Errorf("expected T+2 recorded, got %s", st.lastPosted.PostID)
	}
}

func TestCheckOnce_AllDeliveriesFailKeepsRecord(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{postAt(2, "T+2"), postAt(1, "T+1"), postAt(0, "T")}}
	st := newMockStore()
	st.lastPosted = &store.LastPosted{PostID: "T", PublishedAt: baseTime}
	n := &mockNotifier{failing: map[string]bool{"T+1": true, "T+2": true}}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st.lastPosted.PostID != "T" {
		t.Errorf("failed deliveries must not advance the record, got %s", st.lastPosted.PostID)
	}

	// Next cycle retries both.
	n.failing = nil
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := n.titles(); len(got) != 2 || got[0] != "T+1" || got[1] != "T+2" {
		t.Errorf("expected retry of [T+1 T+2], got %v", got)
	}
}

func TestCheckOnce_DisabledBySetting(t *testing.T) {
	src := &mockSource{posts: []ghost.Post{postAt(1, "T+1")}}
	st := newMockStore()
	st.settings[SettingAutopostEnabled] = "false"
	n := &mockNotifier{}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.fetches != 0 {
		t.Error("disabled announcer must not fetch")
	}
	if len(n.titles()) != 0 {
		t.Errorf("disabled announcer must not deliver, got %v", n.titles())
	}
}

func TestCheckOnce_FetchErrorAbortsCycle(t *testing.T) {
	src := &mockSource{err: errors.New("ghost down")}
	st := newMockStore()
	n := &mockNotifier{}

	a := newTestAnnouncer(src, st, n)
	if err := a.CheckOnce(context.Background()); err == nil {
		t.Error("fetch failure should surface as a cycle error")
	}
	if len(n.titles()) != 0 {
		t.Error("failed cycle must not deliver")
	}

	// The guard must be released even after a failed cycle.
	src.err = nil
	src.posts = []ghost.Post{postAt(1, "T+1")}
	if err := a.CheckOnce(context.Background()); err != nil {
		t.Fatalf("guard was not released after a failed cycle: %v", err)
	}
	if len(n.titles()) != 1 {
		t.Errorf("expected delivery after recovery, got %v", n.titles())
	}
}

func TestInitialize_SkipsWhenNotConfigured(t *testing.T) {
	src := &mockSource{}
	n := &mockNotifier{}

	disabled := New(src, newMockStore(), n, &config.Config{
		AutoPostEnabled:   false,
		AutoPostChannelID: "chan-1",
		CheckInterval:     15 * time.Minute,
	})
	disabled.Initialize()
	if disabled.GetStatus().Scheduled {
		t.Error("announcer must not schedule when disabled")
	}

	noChannel := New(src, newMockStore(), n, &config.Config{
		AutoPostEnabled: true,
		CheckInterval:   15 * time.Minute,
	})
	noChannel.Initialize()
	if noChannel.GetStatus().Scheduled {
		t.Error("announcer must not schedule without a channel")
	}
}

func TestInitializeStopLifecycle(t *testing.T) {
	a := newTestAnnouncer(&mockSource{}, newMockStore(), &mockNotifier{})

	a.Initialize()
	if !a.GetStatus().Scheduled {
		t.Error("expected scheduled after Initialize")
	}

	a.Stop()
	if a.GetStatus().Scheduled {
		t.Error("expected unscheduled after Stop")
	}

	// Stop when not started must be safe.
	a.Stop()
}

func TestCleanup_ClosesStoreOnce(t *testing.T) {
	st := newMockStore()
	a := newTestAnnouncer(&mockSource{}, st, &mockNotifier{})

	a.Initialize()
	a.Cleanup()
	a.Cleanup()

	if st.closed != 1 {
		t.Errorf("expected exactly one store close, got %d", st.closed)
	}
	if a.GetStatus().Scheduled {
		t.Error("cleanup should stop the schedule")
	}
}

func TestNextAlignedFire(t *testing.T) {
	tests := []struct {
		now      time.Time
		interval time.Duration
		want     time.Time
	}{
		{time.Date(2025, 6, 1, 12, 7, 30, 0, time.UTC), 15 * time.Minute, time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)},
		{time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC), 15 * time.Minute, time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)},
		{time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC), 15 * time.Minute, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
		// Host-local time must not shift the firing grid.
		{time.Date(2025, 6, 1, 12, 7, 0, 0, time.FixedZone("JST", 9*3600)), 30 * time.Minute, time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := nextAlignedFire(tt.now, tt.interval)
		if !got.Equal(tt.want) {
			t.Errorf("nextAlignedFire(%v, %v) = %v, want %v", tt.now, tt.interval, got, tt.want)
		}
	}
}
