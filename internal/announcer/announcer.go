// Package announcer polls the Ghost Content API for newly published
// posts and delivers them, oldest first, to a Discord channel. The
// durable last-posted record bounds the failure mode to re-announcing
// after a crash, never to skipping a post.
package announcer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/twhitfield/ghost-discord-bot/internal/config"
	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/metrics"
	"github.com/twhitfield/ghost-discord-bot/internal/store"
)

// SettingAutopostEnabled is the bot_settings key of the admin kill
// switch. Only the explicit value "false" disables cycles.
const SettingAutopostEnabled = "autopost_enabled"

const (
	// fetchLimit is how many of the newest posts each cycle inspects.
	fetchLimit = 5
	// defaultPostDelay spaces successive deliveries within one cycle to
	// respect Discord rate limits.
	defaultPostDelay = 2 * time.Second
)

// Status describes the announcer for the admin surface.
type Status struct {
	Enabled   bool          `json:"enabled"`
	ChannelID string        `json:"channel_id"`
	Interval  time.Duration `json:"interval"`
	Running   bool          `json:"running"`
	Scheduled bool          `json:"scheduled"`
}

// Announcer runs the recurring new-post check.
type Announcer struct {
	source   ContentSource
	store    StateStore
	notifier PostNotifier

	enabled   bool
	channelID string
	interval  time.Duration
	postDelay time.Duration
	now       func() time.Time

	// running is the single-flight guard: one in-flight check at most,
	// extra triggers are skipped, not queued.
	running atomic.Bool

	mu        sync.Mutex
	stop      chan struct{}
	closeOnce sync.Once
}

// New creates an Announcer. Call Initialize to start the schedule.
func New(source ContentSource, st StateStore, n PostNotifier, cfg *config.Config) *Announcer {
	return &Announcer{
		source:    source,
		store:     st,
		notifier:  n,
		enabled:   cfg.AutoPostEnabled,
		channelID: cfg.AutoPostChannelID,
		interval:  cfg.CheckInterval,
		postDelay: defaultPostDelay,
		now:       time.Now,
	}
}

// Initialize starts the recurring schedule. It is a silent no-op unless
// both the enable flag and a delivery channel are configured; callers
// must not assume the announcer is running.
func (a *Announcer) Initialize() {
	if !a.enabled {
		slog.Info("Auto-posting is disabled in configuration")
		return
	}
	if a.channelID == "" {
		slog.Info("Auto-posting channel ID not configured")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		return
	}
	a.stop = make(chan struct{})
	go a.run(a.stop)

	slog.Info("Auto-poster scheduled", "interval", a.interval, "channel", a.channelID)
}

// run waits for the next UTC-aligned boundary, then fires every interval
// until stopped.
func (a *Announcer) run(stop chan struct{}) {
	first := time.NewTimer(nextAlignedFire(a.now(), a.interval).Sub(a.now()))
	defer first.Stop()

	select {
	case <-stop:
		return
	case <-first.C:
	}
	a.trigger()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.trigger()
		}
	}
}

func (a *Announcer) trigger() {
	if err := a.CheckOnce(context.Background()); err != nil {
		slog.Error("Error in auto-poster check", "error", err)
	}
}

// nextAlignedFire returns the first instant after now that falls on a
// whole multiple of interval since UTC midnight, so firing times are
// deterministic regardless of host timezone.
func nextAlignedFire(now time.Time, interval time.Duration) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := now.Sub(midnight)
	return midnight.Add((elapsed/interval + 1) * interval)
}

// Stop cancels the recurring schedule. Safe to call when not started
// and safe to call repeatedly.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
		slog.Info("Auto-poster scheduler stopped")
	}
}

// Cleanup stops the schedule and releases the store connection. Safe to
// call more than once and during shutdown.
func (a *Announcer) Cleanup() {
	a.Stop()
	a.closeOnce.Do(func() {
		if err := a.store.Close(); err != nil {
			slog.Warn("Error closing state store", "error", err)
		}
	})
}

// GetStatus reports the announcer state.
func (a *Announcer) GetStatus() Status {
	a.mu.Lock()
	scheduled := a.stop != nil
	a.mu.Unlock()
	return Status{
		Enabled:   a.enabled,
		ChannelID: a.channelID,
		Interval:  a.interval,
		Running:   a.running.Load(),
		Scheduled: scheduled,
	}
}

// CheckOnce runs one check-and-deliver cycle. A trigger arriving while a
// cycle is in flight is skipped. Exposed for manual admin triggers and
// deterministic tests.
func (a *Announcer) CheckOnce(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		slog.Info("Auto-poster check already running, skipping")
		metrics.AnnouncerCycles.WithLabelValues("skipped").Inc()
		return nil
	}
	defer a.running.Store(false)
	return a.check(ctx)
}

func (a *Announcer) check(ctx context.Context) error {
	enabled, err := a.store.GetSetting(ctx, SettingAutopostEnabled)
	if err != nil {
		metrics.AnnouncerCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("read autopost setting: %w", err)
	}
	if enabled == "false" {
		slog.Info("Auto-posting disabled via admin setting")
		metrics.AnnouncerCycles.WithLabelValues("disabled").Inc()
		return nil
	}

	resp, err := a.source.LatestPosts(ctx, fetchLimit)
	if err != nil {
		metrics.AnnouncerCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch latest posts: %w", err)
	}
	if len(resp.Posts) == 0 {
		metrics.AnnouncerCycles.WithLabelValues("empty").Inc()
		return nil
	}

	last, err := a.store.GetLastPosted(ctx)
	if err != nil {
		metrics.AnnouncerCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("read last posted record: %w", err)
	}

	// The listing is sorted by publish time descending, so the walk can
	// stop at the first item that is not strictly newer than the last
	// announced one.
	var newPosts []ghost.Post
	for _, p := range resp.Posts {
		if p.PublishedAt == nil {
			break
		}
		if last != nil && !p.PublishedAt.After(last.PublishedAt) {
			break
		}
		newPosts = append(newPosts, p)
	}
	if len(newPosts) == 0 {
		metrics.AnnouncerCycles.WithLabelValues("none").Inc()
		return nil
	}

	slog.Info("Found new posts to announce", "count", len(newPosts))

	// Deliver oldest first.
	slices.Reverse(newPosts)

	limiter := rate.NewLimiter(rate.Every(a.postDelay), 1)
	delivered := 0
	for _, post := range newPosts {
		if err := limiter.Wait(ctx); err != nil {
			metrics.AnnouncerCycles.WithLabelValues("error").Inc()
			return err
		}

		if err := a.notifier.AnnouncePost(ctx, a.channelID, post); err != nil {
			// A failed item is never recorded, so it stays eligible for
			// a later cycle; remaining items are still attempted.
			slog.Error("Failed to announce post", "title", post.Title, "error", err)
			continue
		}

		record := store.LastPosted{
			PostID:      post.ID,
			Title:       post.Title,
			URL:         post.URL,
			PublishedAt: *post.PublishedAt,
			PostedAt:    a.now(),
		}
		if err := a.store.SaveLastPosted(ctx, record); err != nil {
			slog.Error("Failed to record announced post", "id", post.ID, "error", err)
		}

		delivered++
		metrics.PostsAnnounced.Inc()
		slog.Info("Announced post", "title", post.Title)
	}

	metrics.AnnouncerCycles.WithLabelValues("ok").Inc()
	slog.Info("Auto-poster cycle complete", "delivered", delivered, "candidates", len(newPosts))
	return nil
}
