package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"releasewatch/internal/config"
	"releasewatch/internal/utils"
)

type fakeClient struct {
	moviePayloads map[int]map[string]interface{}
	showPayloads  map[int]map[string]interface{}
	failMovies    map[int]error
	movieFetches  []int
}

func (c *fakeClient) FetchMovie(ctx context.Context, id int) (map[string]interface{}, error) {
	c.movieFetches = append(c.movieFetches, id)
	if err := c.failMovies[id]; err != nil {
		return nil, err
	}
	payload, ok := c.moviePayloads[id]
	if !ok {
		return nil, fmt.Errorf("no payload for movie %d", id)
	}
	return payload, nil
}

func (c *fakeClient) FetchShow(ctx context.Context, id int) (map[string]interface{}, error) {
	payload, ok := c.showPayloads[id]
	if !ok {
		return nil, fmt.Errorf("no payload for show %d", id)
	}
	return payload, nil
}

type fakeStore struct {
	entries map[string]map[string]interface{}
	puts    int
}

func storeKey(kind MediaKind, id int) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

func (s *fakeStore) Get(kind MediaKind, id int) (map[string]interface{}, bool, error) {
	tree, ok := s.entries[storeKey(kind, id)]
	return tree, ok, nil
}

func (s *fakeStore) Put(kind MediaKind, id int, tree map[string]interface{}) error {
	if s.entries == nil {
		s.entries = make(map[string]map[string]interface{})
	}
	s.entries[storeKey(kind, id)] = tree
	s.puts++
	return nil
}

type sentMail struct {
	recipient string
	subject   string
	body      string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (s *fakeSender) Send(recipient, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{recipient, subject, body})
	return nil
}

type fakeHistory struct {
	events []ChangeEvent
}

func (h *fakeHistory) RecordChange(event ChangeEvent) error {
	h.events = append(h.events, event)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Email.To = []string{"one@example.com", "two@example.com"}
	cfg.Monitor.ThrottleEvery = 10
	cfg.Monitor.ThrottleDelay = "1ms"
	return cfg
}

func testMonitor(cfg *config.Config, client *fakeClient, store *fakeStore, sender *fakeSender) *Monitor {
	m := NewMonitor(cfg, client, store, sender, utils.NewLogger(false))
	m.sleep = func(time.Duration) {}
	return m
}

func statusMoviePayload(status string, releases []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"title":  "A",
		"status": status,
		"release_dates": map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{"iso_3166_1": "US", "release_dates": releases},
			},
		},
	}
}

func TestPollDetectsStatusChange(t *testing.T) {
	cached, err := Normalize(KindMovie, 1, statusMoviePayload("Announced", nil))
	if err != nil {
		t.Fatal(err)
	}
	cachedTree, err := cached.Tree()
	if err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{
		1: statusMoviePayload("Released", []interface{}{
			map[string]interface{}{"type": float64(4), "release_date": "2024-05-01"},
		}),
	}}
	store := &fakeStore{entries: map[string]map[string]interface{}{
		storeKey(KindMovie, 1): cachedTree,
	}}
	sender := &fakeSender{}
	history := &fakeHistory{}

	cfg := testConfig()
	cfg.Movies = []int{1}
	m := testMonitor(cfg, client, store, sender)
	m.SetHistory(history)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	// One notification per configured recipient.
	if len(sender.sent) != 2 {
		t.Fatalf("expected two notifications, got %d", len(sender.sent))
	}
	if sender.sent[0].subject != `Change in movie "A" (1)` {
		t.Errorf("unexpected subject: %q", sender.sent[0].subject)
	}
	if sender.sent[0].recipient != "one@example.com" || sender.sent[1].recipient != "two@example.com" {
		t.Errorf("unexpected recipients: %v", sender.sent)
	}

	// The diff is exactly one status change plus one added release entry.
	if len(history.events) != 1 {
		t.Fatalf("expected one history event, got %v", history.events)
	}
	if history.events[0].OpCount != 2 {
		t.Errorf("expected two ops, got %d", history.events[0].OpCount)
	}
	if !history.events[0].Notified {
		t.Error("expected the event to be marked notified")
	}

	// Cache is overwritten with the new snapshot.
	if store.puts != 1 {
		t.Fatalf("expected one cache write, got %d", store.puts)
	}
	tree, ok, _ := store.Get(KindMovie, 1)
	if !ok || tree["status"] != "Released" {
		t.Errorf("cache not updated: %v", tree)
	}
}

func TestPollUnchangedHasNoSideEffects(t *testing.T) {
	payload := statusMoviePayload("Announced", nil)
	rec, err := Normalize(KindMovie, 1, payload)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := rec.Tree()
	if err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{1: payload}}
	store := &fakeStore{entries: map[string]map[string]interface{}{storeKey(KindMovie, 1): tree}}
	sender := &fakeSender{}

	cfg := testConfig()
	cfg.Movies = []int{1}
	m := testMonitor(cfg, client, store, sender)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no notifications, got %v", sender.sent)
	}
	if store.puts != 0 {
		t.Errorf("expected no cache writes, got %d", store.puts)
	}
}

func TestPollFirstEverAlwaysNotifiesAndCaches(t *testing.T) {
	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{
		1: statusMoviePayload("Announced", nil),
	}}
	store := &fakeStore{}
	sender := &fakeSender{}

	cfg := testConfig()
	cfg.Movies = []int{1}
	m := testMonitor(cfg, client, store, sender)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(sender.sent) == 0 {
		t.Error("expected first poll to notify")
	}
	if store.puts != 1 {
		t.Errorf("expected first poll to seed the cache, got %d writes", store.puts)
	}
}

func TestPollNotificationFailureSkipsCacheWrite(t *testing.T) {
	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{
		1: statusMoviePayload("Announced", nil),
	}}
	store := &fakeStore{}
	sender := &fakeSender{err: errors.New("relay down")}

	cfg := testConfig()
	cfg.Movies = []int{1}
	m := testMonitor(cfg, client, store, sender)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	// The change must be re-detected next pass.
	if store.puts != 0 {
		t.Errorf("cache must stay untouched after a failed notification, got %d writes", store.puts)
	}
}

func TestPollSkipFlags(t *testing.T) {
	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{
		1: statusMoviePayload("Announced", nil),
	}}
	store := &fakeStore{}
	sender := &fakeSender{}

	cfg := testConfig()
	cfg.Movies = []int{1}
	cfg.Monitor.SkipNotifications = true
	cfg.Monitor.SkipCache = true
	m := testMonitor(cfg, client, store, sender)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected notifications to be skipped, got %v", sender.sent)
	}
	if store.puts != 0 {
		t.Errorf("expected cache writes to be skipped, got %d", store.puts)
	}
}

func TestPollSkipNotificationsStillCaches(t *testing.T) {
	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{
		1: statusMoviePayload("Announced", nil),
	}}
	store := &fakeStore{}
	sender := &fakeSender{err: errors.New("would fail")}

	cfg := testConfig()
	cfg.Movies = []int{1}
	cfg.Monitor.SkipNotifications = true
	m := testMonitor(cfg, client, store, sender)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	// Explicitly skipped notifications still allow the cache write.
	if store.puts != 1 {
		t.Errorf("expected one cache write, got %d", store.puts)
	}
}

func TestPollContinuesAfterItemFailure(t *testing.T) {
	client := &fakeClient{
		moviePayloads: map[int]map[string]interface{}{
			2: statusMoviePayload("Announced", nil),
		},
		failMovies: map[int]error{1: errors.New("upstream 500")},
	}
	store := &fakeStore{}
	sender := &fakeSender{}

	cfg := testConfig()
	cfg.Movies = []int{1, 2}
	m := testMonitor(cfg, client, store, sender)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(client.movieFetches) != 2 {
		t.Fatalf("expected both movies fetched, got %v", client.movieFetches)
	}
	if store.puts != 1 {
		t.Errorf("expected the healthy movie to be cached, got %d writes", store.puts)
	}
}

func TestThrottlePausesEveryTenItemsPerKind(t *testing.T) {
	moviePayloads := make(map[int]map[string]interface{})
	var ids []int
	for id := 1; id <= 11; id++ {
		moviePayloads[id] = statusMoviePayload("Announced", nil)
		ids = append(ids, id)
	}

	client := &fakeClient{moviePayloads: moviePayloads}
	cfg := testConfig()
	cfg.Movies = ids
	cfg.Monitor.SkipNotifications = true
	m := testMonitor(cfg, client, &fakeStore{}, &fakeSender{})

	pauses := 0
	m.sleep = func(time.Duration) { pauses++ }

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	// 11 items: one pause, before the 11th.
	if pauses != 1 {
		t.Fatalf("expected exactly one throttle pause, got %d", pauses)
	}

	// 10 items: no pause at all.
	client.movieFetches = nil
	cfg.Movies = ids[:10]
	m2 := testMonitor(cfg, client, &fakeStore{}, &fakeSender{})
	pauses = 0
	m2.sleep = func(time.Duration) { pauses++ }
	if err := m2.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if pauses != 0 {
		t.Fatalf("expected no throttle pause for ten items, got %d", pauses)
	}
}

func TestUpdateListsTakesEffectNextPass(t *testing.T) {
	client := &fakeClient{moviePayloads: map[int]map[string]interface{}{
		5: statusMoviePayload("Announced", nil),
	}}
	cfg := testConfig()
	cfg.Monitor.SkipNotifications = true
	m := testMonitor(cfg, client, &fakeStore{}, &fakeSender{})

	m.UpdateLists([]int{5}, nil)
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(client.movieFetches) != 1 || client.movieFetches[0] != 5 {
		t.Fatalf("expected the updated list to be polled, got %v", client.movieFetches)
	}

	status := m.Status()
	if status.MoviesWatched != 1 || status.ShowsWatched != 0 {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.LastRun == nil {
		t.Error("expected last run to be recorded")
	}
}
