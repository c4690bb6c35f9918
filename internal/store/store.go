// Package store owns the authoritative in-memory disruption set and its
// polling lifecycle. A fetch cycle replaces the set wholesale on success and
// leaves it untouched on failure, so consumers always see either fresh data
// or the last good data, never a cleared screen.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alindq/go-road-disruptions/internal/models"
	"github.com/alindq/go-road-disruptions/internal/normalize"
	"github.com/alindq/go-road-disruptions/internal/notify"
	"github.com/alindq/go-road-disruptions/internal/observability"
	"github.com/alindq/go-road-disruptions/internal/repository"
	"github.com/alindq/go-road-disruptions/internal/tfl"
)

// Refresh triggers. The new-severe delta only runs for automatic refreshes:
// a manual refresh is user-initiated, not a background surprise, and the
// initial fetch has no previous set to diff against.
const (
	TriggerInitial = "initial"
	TriggerAuto    = "auto"
	TriggerManual  = "manual"
)

// User-facing failure messages; transport failures get a more specific one.
const (
	msgTransport = "Unable to reach the disruption feed. Check your connection and try again."
	msgRequest   = "The disruption feed request failed. Please try again later."
)

// FeedClient is what the store needs from the upstream feed.
type FeedClient interface {
	FetchDisruptions(ctx context.Context) ([]map[string]any, error)
}

// State is a point-in-time view of the store. Records are shared read-only
// pointers into the authoritative set.
type State struct {
	Records     []*models.DisruptionRecord
	LastUpdated time.Time
	Loading     bool
	Error       string
	// Populated is false until data has been available at least once; a
	// fetch failure before then is a blocking first-load error, afterwards
	// a non-blocking notice over stale data.
	Populated bool
}

type Store struct {
	client    FeedClient
	notifier  *notify.Broadcaster
	snapshots repository.SnapshotStore
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration

	// Single-flight guard: a refresh requested while one is in flight is
	// coalesced instead of racing it for the last write.
	inFlight atomic.Bool

	mu          sync.RWMutex
	records     []*models.DisruptionRecord
	lastUpdated time.Time
	loading     bool
	errMsg      string
	populated   bool
	onReplace   func(presentIDs map[string]struct{})

	wg sync.WaitGroup
}

// New wires a store. notifier, snapshots, and metrics may each be nil; the
// corresponding side effect is skipped.
func New(client FeedClient, notifier *notify.Broadcaster, snapshots repository.SnapshotStore,
	metrics *observability.Metrics, clock clockwork.Clock, interval time.Duration) *Store {
	return &Store{
		client:    client,
		notifier:  notifier,
		snapshots: snapshots,
		metrics:   metrics,
		clock:     clock,
		interval:  interval,
	}
}

// OnReplace registers the callback invoked with the new id set after every
// successful refresh, so the selection layer can drop a pointer to a record
// that no longer exists. Must be called during wiring, before Start.
func (s *Store) OnReplace(fn func(presentIDs map[string]struct{})) {
	s.mu.Lock()
	s.onReplace = fn
	s.mu.Unlock()
}

// Start loads any persisted snapshot, performs the initial fetch, and kicks
// off the periodic refresh loop. The loop stops when ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	if s.snapshots != nil {
		s.warmStart(ctx)
	}

	s.refresh(ctx, TriggerInitial)

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Store) warmStart(ctx context.Context) {
	records, fetchedAt, err := s.snapshots.Load(ctx)
	if err != nil {
		slog.Warn("snapshot load failed, starting cold", "error", err)
		return
	}
	if fetchedAt.IsZero() {
		return
	}

	s.mu.Lock()
	s.records = records
	s.lastUpdated = fetchedAt
	s.populated = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordCount.Set(float64(len(records)))
	}
	slog.Info("warm start from snapshot", "count", len(records), "fetched_at", fetchedAt)
}

func (s *Store) run(ctx context.Context) {
	defer s.wg.Done()
	slog.Info("starting refresh loop", "interval", s.interval)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh loop shutting down")
			return
		case <-ticker.Chan():
			s.refresh(ctx, TriggerAuto)
		}
	}
}

// Stop waits for the refresh loop to exit. Cancel the Start context first.
func (s *Store) Stop() {
	s.wg.Wait()
	slog.Info("store stopped")
}

// Refresh runs one fetch cycle. Outcome is observed via State and the
// notifier, not a return value. Coalesced to a no-op when a cycle is
// already in flight.
func (s *Store) Refresh(ctx context.Context, manual bool) {
	trigger := TriggerAuto
	if manual {
		trigger = TriggerManual
	}
	s.refresh(ctx, trigger)
}

func (s *Store) refresh(ctx context.Context, trigger string) {
	if !s.inFlight.CompareAndSwap(false, true) {
		slog.Debug("refresh already in flight, coalescing", "trigger", trigger)
		return
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	start := s.clock.Now()
	items, err := s.client.FetchDisruptions(ctx)
	if err != nil {
		s.failFetch(trigger, err)
		return
	}

	records := make([]*models.DisruptionRecord, 0, len(items))
	dropped := 0
	for _, item := range items {
		rec, ok := normalize.Record(item)
		if !ok {
			// Expected with an uncontrolled upstream schema, not an error.
			dropped++
			continue
		}
		records = append(records, rec)
	}

	newSevere := 0
	s.mu.Lock()
	if trigger == TriggerAuto {
		newSevere = countNewSevere(s.records, records)
	}
	s.records = records
	s.lastUpdated = s.clock.Now()
	s.errMsg = ""
	s.loading = false
	s.populated = true
	fetchedAt := s.lastUpdated
	onReplace := s.onReplace
	s.mu.Unlock()

	if onReplace != nil {
		onReplace(idSet(records))
	}

	if s.metrics != nil {
		s.metrics.FetchTotal.WithLabelValues("success", trigger).Inc()
		s.metrics.FetchDuration.Observe(s.clock.Since(start).Seconds())
		s.metrics.RecordCount.Set(float64(len(records)))
		if dropped > 0 {
			s.metrics.DroppedRecords.Add(float64(dropped))
		}
	}

	if s.notifier != nil {
		s.notifier.Publish(notify.Event{Kind: notify.KindFetchSuccess, Count: len(records)})
		if newSevere > 0 {
			s.notifier.Publish(notify.Event{Kind: notify.KindNewSevere, Count: newSevere})
		}
	}
	if newSevere > 0 && s.metrics != nil {
		s.metrics.NewSevere.Add(float64(newSevere))
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, records, fetchedAt); err != nil {
			slog.Warn("snapshot save failed", "error", err)
		}
	}

	slog.Info("refresh complete", "trigger", trigger, "count", len(records),
		"dropped", dropped, "new_severe", newSevere)
}

func (s *Store) failFetch(trigger string, err error) {
	msg, outcome := classify(err)

	s.mu.Lock()
	s.errMsg = msg
	s.loading = false
	s.mu.Unlock()

	slog.Error("fetch failed", "trigger", trigger, "outcome", outcome, "error", err)

	if s.metrics != nil {
		s.metrics.FetchTotal.WithLabelValues(outcome, trigger).Inc()
	}
	if s.notifier != nil {
		s.notifier.Publish(notify.Event{Kind: notify.KindFetchError, Message: msg})
	}
}

// classify distinguishes transport failures (no response at all) from
// HTTP-status and payload failures for messaging; all three leave the
// previous records untouched and are recoverable via retry.
func classify(err error) (msg, outcome string) {
	switch {
	case errors.Is(err, tfl.ErrTransport):
		return msgTransport, "transport_error"
	case errors.Is(err, tfl.ErrStatus):
		return msgRequest, "status_error"
	case errors.Is(err, tfl.ErrPayload):
		return msgRequest, "payload_error"
	default:
		return msgRequest, "payload_error"
	}
}

// countNewSevere diffs by id and counts Severe records absent from the
// previous set. Known limitation: if the upstream feed reassigns ids
// between polls (the normalizer synthesizes ids when the feed omits them),
// this over-counts; that inaccuracy is accepted rather than papered over.
func countNewSevere(prev, next []*models.DisruptionRecord) int {
	prevIDs := idSet(prev)
	count := 0
	for _, rec := range next {
		if rec.Severity != models.SeveritySevere {
			continue
		}
		if _, seen := prevIDs[rec.ID]; !seen {
			count++
		}
	}
	return count
}

func idSet(records []*models.DisruptionRecord) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, rec := range records {
		ids[rec.ID] = struct{}{}
	}
	return ids
}

// State returns a point-in-time view. The slice header is copied; the
// records themselves are shared and must be treated as read-only.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Records:     s.records,
		LastUpdated: s.lastUpdated,
		Loading:     s.loading,
		Error:       s.errMsg,
		Populated:   s.populated,
	}
}

// FindByID returns the record with the given id from the authoritative set,
// or nil.
func (s *Store) FindByID(id string) *models.DisruptionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}
