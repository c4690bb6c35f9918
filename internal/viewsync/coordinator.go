// Package viewsync reacts to selection transitions and drives a map
// viewport so the list and map always point at the same disruption. The
// viewport itself is an external collaborator; this package only issues
// commands against the Viewport interface.
package viewsync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alindq/go-road-disruptions/internal/models"
	"github.com/alindq/go-road-disruptions/internal/notify"
)

// Viewport is the map primitive the coordinator drives.
type Viewport interface {
	SetView(lat, lon float64, zoom int, animate bool, duration time.Duration)
	ClosePopup()
	OpenPopupFor(id string)
}

type Config struct {
	// Default viewport: the metro area's centroid at a city-wide zoom.
	DefaultLat  float64
	DefaultLon  float64
	DefaultZoom int

	// Close-in zoom used when centering on a selected record.
	FocusZoom int

	// PanDuration bounds the viewport animation; SettleDelay is the wait
	// before the detail popup opens and must exceed PanDuration so the popup
	// never opens mid-pan. Config validation enforces the ordering.
	PanDuration time.Duration
	SettleDelay time.Duration

	// Bounds is the metro bounding box; only coordinates inside it get map
	// markers.
	Bounds models.BoundingBox
}

type Coordinator struct {
	cfg   Config
	vp    Viewport
	clock clockwork.Clock

	mu         sync.Mutex
	generation uint64
	pending    clockwork.Timer
}

func NewCoordinator(cfg Config, vp Viewport, clock clockwork.Clock) *Coordinator {
	return &Coordinator{
		cfg:   cfg,
		vp:    vp,
		clock: clock,
	}
}

// SelectionChanged handles one selection transition. Transitions to a record
// with coordinates pan the viewport there and schedule the popup open after
// the settle delay; transitions to nil reset to the default viewport; a
// record without coordinates is a silent no-op (nothing to center on).
//
// The settle-delay popup is a cancellable deferred action: the timer
// captures the generation that scheduled it and re-checks it at fire time,
// so a popup for a superseded selection never opens.
func (c *Coordinator) SelectionChanged(rec *models.DisruptionRecord, generation uint64) {
	c.mu.Lock()
	c.generation = generation
	c.cancelPendingLocked()
	c.mu.Unlock()

	switch {
	case rec == nil:
		c.vp.ClosePopup()
		c.vp.SetView(c.cfg.DefaultLat, c.cfg.DefaultLon, c.cfg.DefaultZoom, true, c.cfg.PanDuration)

	case !rec.HasCoordinates():
		// Nothing to center on.

	default:
		c.vp.ClosePopup()
		c.vp.SetView(rec.Coordinates.Lat, rec.Coordinates.Lon, c.cfg.FocusZoom, true, c.cfg.PanDuration)

		id := rec.ID
		timer := c.clock.AfterFunc(c.cfg.SettleDelay, func() {
			c.openPopupIfCurrent(id, generation)
		})
		c.mu.Lock()
		c.pending = timer
		c.mu.Unlock()
	}
}

func (c *Coordinator) openPopupIfCurrent(id string, generation uint64) {
	c.mu.Lock()
	current := c.generation == generation
	c.mu.Unlock()
	if current {
		c.vp.OpenPopupFor(id)
	}
}

// Markers returns the records eligible for map markers: those with
// coordinates inside the metro bounding box. Out-of-bounds coordinates are
// malformed upstream data and are silently excluded from the map layer;
// the records stay listed and counted in the sidebar.
func (c *Coordinator) Markers(records []*models.DisruptionRecord) []*models.DisruptionRecord {
	markers := make([]*models.DisruptionRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasCoordinates() && c.cfg.Bounds.Contains(*rec.Coordinates) {
			markers = append(markers, rec)
		}
	}
	return markers
}

// Stop cancels any pending popup timer. Must be called when the owning view
// is discarded so no deferred action fires after teardown.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
	c.generation++ // stale-guard any timer that already fired concurrently
}

func (c *Coordinator) cancelPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// BroadcastViewport publishes viewport commands as notification events so a
// connected map client can execute them.
type BroadcastViewport struct {
	b *notify.Broadcaster
}

func NewBroadcastViewport(b *notify.Broadcaster) *BroadcastViewport {
	return &BroadcastViewport{b: b}
}

func (v *BroadcastViewport) SetView(lat, lon float64, zoom int, animate bool, duration time.Duration) {
	v.b.Publish(notify.Event{
		Kind: notify.KindMapSetView,
		View: &notify.ViewCommand{
			Lat:        lat,
			Lon:        lon,
			Zoom:       zoom,
			Animate:    animate,
			DurationMs: duration.Milliseconds(),
		},
	})
}

func (v *BroadcastViewport) ClosePopup() {
	v.b.Publish(notify.Event{Kind: notify.KindMapClosePopup})
}

func (v *BroadcastViewport) OpenPopupFor(id string) {
	v.b.Publish(notify.Event{Kind: notify.KindMapOpenPopup, PopupID: id})
}
