package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alindq/go-road-disruptions/internal/filter"
	"github.com/alindq/go-road-disruptions/internal/models"
	"github.com/alindq/go-road-disruptions/internal/notify"
	"github.com/alindq/go-road-disruptions/internal/selection"
	"github.com/alindq/go-road-disruptions/internal/store"
	"github.com/alindq/go-road-disruptions/internal/viewsync"
)

type Handler struct {
	store       *store.Store
	selection   *selection.Controller
	coordinator *viewsync.Coordinator
	notifier    *notify.Broadcaster
}

func NewHandler(st *store.Store, sel *selection.Controller,
	coord *viewsync.Coordinator, notifier *notify.Broadcaster) *Handler {
	return &Handler{
		store:       st,
		selection:   sel,
		coordinator: coord,
		notifier:    notifier,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/disruptions", h.getDisruptions)
	r.GET("/api/disruptions/markers", h.getMarkers)
	r.PUT("/api/filter", h.updateFilter)
	r.POST("/api/selection", h.selectDisruption)
	r.DELETE("/api/selection", h.clearSelection)
	r.POST("/api/sidebar/toggle", h.toggleSidebar)
	r.POST("/api/refresh", h.refresh)
	r.GET("/api/events", h.streamEvents)
	r.GET("/health", h.health)
}

// errorState distinguishes a blocking first-load failure (no data has ever
// been shown) from a non-blocking steady-state failure over stale data.
type errorState struct {
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

// viewState is everything the list/map/filter rendering layers consume.
type viewState struct {
	Disruptions []*models.DisruptionRecord `json:"disruptions"`
	Counts      models.SeverityCounts      `json:"counts"`
	Criteria    models.FilterCriteria      `json:"criteria"`
	SelectedID  string                     `json:"selectedId,omitempty"`
	SidebarOpen bool                       `json:"sidebarOpen"`
	LastUpdated time.Time                  `json:"lastUpdated,omitzero"`
	Loading     bool                       `json:"loading"`
	Error       *errorState                `json:"error,omitempty"`
}

func (h *Handler) currentView() viewState {
	state := h.store.State()
	res := filter.Apply(state.Records, h.selection.Criteria())

	view := viewState{
		Disruptions: res.Visible,
		Counts:      res.Counts,
		Criteria:    h.selection.Criteria(),
		SidebarOpen: h.selection.SidebarOpen(),
		LastUpdated: state.LastUpdated,
		Loading:     state.Loading,
	}
	if sel := h.selection.Selected(); sel != nil {
		view.SelectedID = sel.ID
	}
	if state.Error != "" {
		view.Error = &errorState{
			Message:  state.Error,
			Blocking: !state.Populated,
		}
	}
	return view
}

func (h *Handler) getDisruptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentView())
}

// getMarkers returns the map layer's records as GeoJSON: the visible subset
// restricted to coordinates inside the metro bounding box.
func (h *Handler) getMarkers(c *gin.Context) {
	state := h.store.State()
	res := filter.Apply(state.Records, h.selection.Criteria())

	fc := toGeoJSON(h.coordinator.Markers(res.Visible))
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) updateFilter(c *gin.Context) {
	var patch selection.CriteriaPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter payload"})
		return
	}
	if patch.Severities != nil {
		for _, sv := range *patch.Severities {
			switch sv {
			case models.SeveritySevere, models.SeverityModerate, models.SeverityMinor:
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity: " + string(sv)})
				return
			}
		}
	}

	h.selection.UpdateCriteria(patch)
	c.JSON(http.StatusOK, h.currentView())
}

func (h *Handler) selectDisruption(c *gin.Context) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	rec := h.store.FindByID(body.ID)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "disruption not found: " + body.ID})
		return
	}

	h.selection.Select(rec)
	c.JSON(http.StatusOK, h.currentView())
}

func (h *Handler) clearSelection(c *gin.Context) {
	h.selection.Clear()
	c.JSON(http.StatusOK, h.currentView())
}

func (h *Handler) toggleSidebar(c *gin.Context) {
	open := h.selection.ToggleSidebar()
	c.JSON(http.StatusOK, gin.H{"sidebarOpen": open})
}

func (h *Handler) refresh(c *gin.Context) {
	h.store.Refresh(c.Request.Context(), true)
	c.JSON(http.StatusOK, h.currentView())
}

// streamEvents pushes notifier events (toasts and map viewport commands)
// over SSE until the client disconnects or the broadcaster closes.
func (h *Handler) streamEvents(c *gin.Context) {
	id, events := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
