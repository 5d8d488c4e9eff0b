package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"releasewatch/internal/config"
	"releasewatch/internal/utils"
)

// MetadataClient fetches raw provider payloads. Retries and timeouts live
// behind this interface; the monitor only sees a payload or an error.
type MetadataClient interface {
	FetchMovie(ctx context.Context, id int) (map[string]interface{}, error)
	FetchShow(ctx context.Context, id int) (map[string]interface{}, error)
}

// SnapshotStore reads and writes cached record snapshots. A missing
// snapshot is a miss, not an error.
type SnapshotStore interface {
	Get(kind MediaKind, id int) (map[string]interface{}, bool, error)
	Put(kind MediaKind, id int, tree map[string]interface{}) error
}

// Sender delivers one subject/body message to one recipient.
type Sender interface {
	Send(recipient, subject, body string) error
}

// Pusher broadcasts a short notification, e.g. to Pushbullet devices.
type Pusher interface {
	Push(title, body string) error
}

// ChangeEvent describes one detected change for the history store.
type ChangeEvent struct {
	RunID    string
	Kind     MediaKind
	EntityID int
	Title    string
	Subject  string
	OpCount  int
	Notified bool
}

// HistoryStore records detected changes. Optional; a nil store disables
// history.
type HistoryStore interface {
	RecordChange(event ChangeEvent) error
}

// Status is a point-in-time view of the monitor for the daemon API.
type Status struct {
	Running       bool       `json:"running"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	LastChanges   int        `json:"last_changes"`
	LastErrors    int        `json:"last_errors"`
	MoviesWatched int        `json:"movies_watched"`
	ShowsWatched  int        `json:"shows_watched"`
}

type Monitor struct {
	config    *config.Config
	client    MetadataClient
	cache     SnapshotStore
	sender    Sender
	pusher    Pusher
	history   HistoryStore
	logger    *utils.Logger
	scheduler *cron.Cron

	// sleep is swapped out by tests to observe throttling.
	sleep func(time.Duration)

	mu          sync.Mutex
	running     bool
	lastRun     *time.Time
	lastChanges int
	lastErrors  int
	movies      []int
	shows       []int
}

func NewMonitor(cfg *config.Config, client MetadataClient, cache SnapshotStore, sender Sender, logger *utils.Logger) *Monitor {
	return &Monitor{
		config:    cfg,
		client:    client,
		cache:     cache,
		sender:    sender,
		logger:    logger,
		scheduler: cron.New(),
		sleep:     time.Sleep,
		movies:    append([]int(nil), cfg.Movies...),
		shows:     append([]int(nil), cfg.Shows...),
	}
}

// SetPusher attaches an optional broadcast notifier.
func (m *Monitor) SetPusher(p Pusher) {
	m.pusher = p
}

// SetHistory attaches an optional change-history store.
func (m *Monitor) SetHistory(h HistoryStore) {
	m.history = h
}

// UpdateLists swaps the watched ID lists, used by the daemon's config
// reload. The next poll pass picks them up.
func (m *Monitor) UpdateLists(movies, shows []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movies = append([]int(nil), movies...)
	m.shows = append([]int(nil), shows...)
}

// RunOnce executes one full poll pass: all watched movies, then all watched
// shows, in configured order. Per-item failures are logged and skipped; the
// pass itself only fails when another pass is already in flight.
func (m *Monitor) RunOnce(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("poll pass already in progress")
	}
	m.running = true
	movies := append([]int(nil), m.movies...)
	shows := append([]int(nil), m.shows...)
	m.mu.Unlock()

	runID := uuid.NewString()
	m.logger.Info("Starting poll pass", runID)

	changes, errs := 0, 0
	if !m.config.Monitor.SkipMovies {
		c, e := m.pollKind(ctx, runID, KindMovie, movies)
		changes += c
		errs += e
	}
	if !m.config.Monitor.SkipShows {
		c, e := m.pollKind(ctx, runID, KindShow, shows)
		changes += c
		errs += e
	}

	now := time.Now()
	m.mu.Lock()
	m.running = false
	m.lastRun = &now
	m.lastChanges = changes
	m.lastErrors = errs
	m.mu.Unlock()

	m.logger.Info("Poll pass finished:", changes, "changes,", errs, "errors")
	return nil
}

// pollKind walks one kind's ID list in order, pausing before every item
// whose zero-based index is a positive multiple of the throttle interval.
// The throttle counter is per kind.
func (m *Monitor) pollKind(ctx context.Context, runID string, kind MediaKind, ids []int) (changes, errs int) {
	every := m.config.Monitor.ThrottleEvery
	for i, id := range ids {
		if every > 0 && i > 0 && i%every == 0 {
			m.logger.Debug("Throttling before next", kind, "batch")
			m.sleep(m.config.ThrottleDelay())
		}

		changed, err := m.pollOne(ctx, runID, kind, id)
		if err != nil {
			m.logger.Error("Skipping", kind, id, "after error:", err)
			errs++
			continue
		}
		if changed {
			changes++
		}
	}
	return changes, errs
}

func (m *Monitor) pollOne(ctx context.Context, runID string, kind MediaKind, id int) (bool, error) {
	oldTree, cached, err := m.cache.Get(kind, id)
	if err != nil {
		return false, fmt.Errorf("failed to read cache for %s %d: %w", kind, id, err)
	}
	if !cached {
		oldTree = nil
	}

	var payload map[string]interface{}
	switch kind {
	case KindMovie:
		payload, err = m.client.FetchMovie(ctx, id)
	case KindShow:
		payload, err = m.client.FetchShow(ctx, id)
	default:
		return false, fmt.Errorf("unsupported media kind %q", kind)
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s %d: %w", kind, id, err)
	}

	rec, err := Normalize(kind, id, payload)
	if err != nil {
		return false, err
	}
	newTree, err := rec.Tree()
	if err != nil {
		return false, err
	}

	ops := Diff(oldTree, newTree)
	changed, subject, body := FormatChange(rec, oldTree, newTree, ops)
	if !changed {
		m.logger.Debug("No change for", kind, id)
		return false, nil
	}

	m.logger.Info(subject)

	notified := false
	if !m.config.Monitor.SkipNotifications {
		for _, recipient := range m.config.Email.To {
			if err := m.sender.Send(recipient, subject, body); err != nil {
				// Leave the cache untouched so the change is
				// detected again on the next pass.
				return false, fmt.Errorf("failed to notify %s: %w", recipient, err)
			}
		}
		if m.pusher != nil {
			if err := m.pusher.Push(subject, rec.WebURL()); err != nil {
				m.logger.Error("Pushbullet notification failed:", err)
			}
		}
		notified = true
	}

	if !m.config.Monitor.SkipCache {
		if err := m.cache.Put(kind, id, newTree); err != nil {
			return true, fmt.Errorf("failed to cache %s %d: %w", kind, id, err)
		}
	}

	if m.history != nil {
		event := ChangeEvent{
			RunID:    runID,
			Kind:     kind,
			EntityID: id,
			Title:    rec.Title,
			Subject:  subject,
			OpCount:  len(ops),
			Notified: notified,
		}
		if err := m.history.RecordChange(event); err != nil {
			m.logger.Error("Failed to record change history:", err)
		}
	}

	return true, nil
}

// Status reports the monitor state for the daemon API.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Running:       m.running,
		LastRun:       m.lastRun,
		LastChanges:   m.lastChanges,
		LastErrors:    m.lastErrors,
		MoviesWatched: len(m.movies),
		ShowsWatched:  len(m.shows),
	}
}

// StartScheduler begins periodic poll passes on the configured cron
// schedule. Ticks overlapping a pass in flight are skipped.
func (m *Monitor) StartScheduler() error {
	_, err := m.scheduler.AddFunc(m.config.Daemon.Schedule, func() {
		if err := m.RunOnce(context.Background()); err != nil {
			m.logger.Error("Scheduled poll pass skipped:", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poll pass: %w", err)
	}
	m.scheduler.Start()
	m.logger.Info("Scheduler started with schedule", m.config.Daemon.Schedule)
	return nil
}

// Stop halts the scheduler. A pass in flight finishes on its own.
func (m *Monitor) Stop() {
	m.scheduler.Stop()
}
