// Package selection owns the "currently selected disruption" shared between
// the list and map views, the sidebar visibility flag, and the current
// filter criteria. It is the single writer for all three; readers get
// copies or shared read-only record pointers.
package selection

import (
	"sync"

	"github.com/alindq/go-road-disruptions/internal/models"
)

// ChangeFunc observes selection transitions. The generation increments on
// every transition so deferred work (the settle-delay popup) can detect it
// went stale before firing.
type ChangeFunc func(selected *models.DisruptionRecord, generation uint64)

// CriteriaPatch is a partial filter update; nil fields are left unchanged.
type CriteriaPatch struct {
	Severities *[]models.Severity `json:"severities"`
	SearchText *string            `json:"searchText"`
}

type Controller struct {
	mu          sync.Mutex
	selected    *models.DisruptionRecord
	sidebarOpen bool
	criteria    models.FilterCriteria
	generation  uint64
	onChange    ChangeFunc
}

// NewController starts in the initial state: nothing selected, sidebar
// open, default criteria.
func NewController() *Controller {
	return &Controller{
		sidebarOpen: true,
		criteria:    models.DefaultCriteria(),
	}
}

// OnChange registers the single observer for selection transitions. Must be
// called during wiring, before the controller is shared.
func (c *Controller) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Select makes the record the current selection.
func (c *Controller) Select(rec *models.DisruptionRecord) {
	c.mu.Lock()
	c.selected = rec
	c.generation++
	fn, gen := c.onChange, c.generation
	c.mu.Unlock()

	if fn != nil {
		fn(rec, gen)
	}
}

// Clear is the user-facing "reset" action: it drops the selection AND
// restores the default filter criteria. The two are deliberately coupled
// into one operation, not independent.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.selected = nil
	c.criteria = models.DefaultCriteria()
	c.generation++
	fn, gen := c.onChange, c.generation
	c.mu.Unlock()

	if fn != nil {
		fn(nil, gen)
	}
}

// Invalidate resets the selection to nil when the authoritative record set
// was replaced and the selected id is no longer present. The store calls
// this after every successful refresh; keeping a pointer to a record that
// is no longer in the set would be a dangling reference.
func (c *Controller) Invalidate(presentIDs map[string]struct{}) {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return
	}
	if _, stillPresent := presentIDs[c.selected.ID]; stillPresent {
		c.mu.Unlock()
		return
	}
	c.selected = nil
	c.generation++
	fn, gen := c.onChange, c.generation
	c.mu.Unlock()

	if fn != nil {
		fn(nil, gen)
	}
}

// ToggleSidebar flips sidebar visibility and returns the new state. Sidebar
// state has no effect on filtering or selection.
func (c *Controller) ToggleSidebar() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sidebarOpen = !c.sidebarOpen
	return c.sidebarOpen
}

// UpdateCriteria applies a partial filter change and returns the resulting
// criteria.
func (c *Controller) UpdateCriteria(patch CriteriaPatch) models.FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()

	if patch.Severities != nil {
		c.criteria.Severities = models.NewSeveritySet(*patch.Severities...)
	}
	if patch.SearchText != nil {
		c.criteria.SearchText = *patch.SearchText
	}
	return c.criteria
}

func (c *Controller) Selected() *models.DisruptionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

func (c *Controller) SidebarOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sidebarOpen
}

func (c *Controller) Criteria() models.FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}
