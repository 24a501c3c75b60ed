// Package api provides HTTP handlers for the visualizer.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/agentviz/bus"
	"github.com/xiaot623/agentviz/config"
	"github.com/xiaot623/agentviz/domain"
	"github.com/xiaot623/agentviz/hub"
	"github.com/xiaot623/agentviz/policy"
	"github.com/xiaot623/agentviz/runlog"
	"github.com/xiaot623/agentviz/runner"
	"github.com/xiaot623/agentviz/store"
)

// Handler handles HTTP requests.
type Handler struct {
	bus      *bus.Bus
	hub      *hub.Hub
	store    store.Store
	registry *runner.Registry
	policy   *policy.Engine
	config   *config.Config

	mu           sync.Mutex
	cancelRun    context.CancelFunc
	replayActive bool
}

// NewHandler creates a new handler.
func NewHandler(b *bus.Bus, h *hub.Hub, st store.Store, reg *runner.Registry, pol *policy.Engine, cfg *config.Config) *Handler {
	return &Handler{
		bus:      b,
		hub:      h,
		store:    st,
		registry: reg,
		policy:   pol,
		config:   cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/demos", h.ListDemos)
	e.GET("/api/topology", h.GetTopology)
	e.GET("/api/events", h.GetEvents)
	e.GET("/api/status", h.GetStatus)
	e.GET("/api/runs", h.ListRuns)
	e.POST("/api/run/:demo_id", h.StartRun)
	e.POST("/api/replay", h.Replay)
	e.POST("/api/stop", h.Stop)

	e.GET("/ws", h.HandleWebSocket)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": h.hub.ConnectionCount(),
		"subscribers": h.bus.SubscriberCount(),
	})
}

// ListDemos returns the demo registry.
func (h *Handler) ListDemos(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.List())
}

// GetTopology returns the current demo's topology.
func (h *Handler) GetTopology(c echo.Context) error {
	demoID, _ := h.bus.Status()
	if demo, ok := h.registry.Get(demoID); ok {
		return c.JSON(http.StatusOK, demo.Topology)
	}
	return c.JSON(http.StatusOK, domain.Topology{})
}

// GetEvents returns the current run's history.
func (h *Handler) GetEvents(c echo.Context) error {
	events := h.bus.History()
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

// GetStatus returns the current run status.
func (h *Handler) GetStatus(c echo.Context) error {
	demoID, running := h.bus.Status()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"demo_id": demoID,
		"running": running,
	})
}

// ListRuns returns the run catalog, newest first.
func (h *Handler) ListRuns(c echo.Context) error {
	records, err := h.store.ListRuns(c.QueryParam("demo_id"), 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
	}
	if records == nil {
		records = []domain.RunRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// RunRequest is the body of POST /api/run/:demo_id.
type RunRequest struct {
	Prompt string `json:"prompt"`
}

// StartRun starts a demo run in the background.
func (h *Handler) StartRun(c echo.Context) error {
	demoID := c.Param("demo_id")

	var req RunRequest
	_ = c.Bind(&req)

	_, known := h.registry.Get(demoID)
	decision, reason, err := h.policy.Evaluate(c.Request().Context(), policy.RunInput{
		DemoID: demoID,
		Known:  known,
		Prompt: req.Prompt,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "policy evaluation failed"})
	}
	if decision != "allow" {
		if !known {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown demo"})
		}
		log.Printf("Run request blocked by policy: demo=%s reason=%s", demoID, reason)
		return c.JSON(http.StatusForbidden, map[string]string{"error": "run blocked by policy"})
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.replayActive {
		return c.JSON(http.StatusConflict, map[string]string{"error": "a replay is active"})
	}

	// Open the run here, not in the background driver, so a losing racer
	// gets its conflict in the response instead of a log line.
	demo, _ := h.registry.Get(demoID)
	handle, err := h.bus.StartRun(demoID)
	if err != nil {
		if errors.Is(err, bus.ErrRunAlreadyActive) {
			if currentDemo, _ := h.bus.Status(); currentDemo == demoID {
				return c.JSON(http.StatusOK, map[string]string{"status": "already_running", "demo_id": demoID})
			}
			return c.JSON(http.StatusConflict, map[string]string{"error": "another run is active"})
		}
		log.Printf("ERROR: failed to start run: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start run"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancelRun = cancel

	go func() {
		defer cancel()
		if err := h.registry.Drive(ctx, handle, demo, req.Prompt, h.config.StepDelay); err != nil {
			log.Printf("ERROR: demo run failed: %v", err)
		}
	}()

	return c.JSON(http.StatusOK, map[string]string{"status": "started", "demo_id": demoID})
}

// Stop cancels the current run, if any. The run closes as failed; events
// already accepted stay in its log.
func (h *Handler) Stop(c echo.Context) error {
	h.mu.Lock()
	cancel := h.cancelRun
	h.cancelRun = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopped"})
}

// ReplayRequest is the body of POST /api/replay.
type ReplayRequest struct {
	Path  string `json:"path"`
	Paced bool   `json:"paced"`
}

// Replay loads a closed run log. With paced=true the events are delivered
// to all connected observers at a fixed cadence instead of being returned
// inline. One foreground activity at a time: a paced replay is rejected
// while a live run or another replay is active.
func (h *Handler) Replay(c echo.Context) error {
	var req ReplayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Path == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "path required"})
	}

	events, err := runlog.Replay(h.config.RunsRoot, req.Path)
	if err != nil {
		if errors.Is(err, runlog.ErrInvalidReplayPath) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "access denied"})
		}
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load run log"})
	}

	if !req.Paced {
		if events == nil {
			events = []domain.Event{}
		}
		return c.JSON(http.StatusOK, events)
	}

	h.mu.Lock()
	if _, running := h.bus.Status(); running || h.replayActive {
		h.mu.Unlock()
		return c.JSON(http.StatusConflict, map[string]string{"error": "another activity is active"})
	}
	h.replayActive = true
	h.mu.Unlock()

	go h.deliverReplay(events)

	return c.JSON(http.StatusOK, map[string]interface{}{"status": "replaying", "events": len(events)})
}

func (h *Handler) deliverReplay(events []domain.Event) {
	defer func() {
		h.mu.Lock()
		h.replayActive = false
		h.mu.Unlock()
	}()

	deadline := time.Duration(len(events)+1)*h.config.ReplayPace + time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	for event := range runlog.Pace(ctx, events, h.config.ReplayPace) {
		if err := h.hub.BroadcastJSON(event); err != nil {
			log.Printf("ERROR: failed to broadcast replay event: %v", err)
			return
		}
	}
}
