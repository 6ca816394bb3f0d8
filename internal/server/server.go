// Package server exposes the dashboards as a JSON HTTP API and keeps the
// dataset cache warm in the background.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Engine is the dashboard backend the handlers depend on.
type Engine interface {
	Config() pipeline.ServiceConfig
	TrendDomains(ctx context.Context) ([]model.Domain, error)
	DefaultTrendSelection(ctx context.Context) (model.Selection, error)
	Trend(ctx context.Context, sel model.Selection) (*pipeline.TrendView, error)
	ExploreDomains(ctx context.Context, ignore []string) ([]model.Domain, error)
	Explore(ctx context.Context, sel model.Selection, ignore []string) (*pipeline.ExploreView, error)
	Listings(ctx context.Context, sel model.Selection) (*pipeline.ListingsView, error)
	Snapshots(ctx context.Context) ([]pipeline.Snapshot, error)
	Invalidate()
}

// Config controls the server runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration // background refresh period
	EventsBuffer int
	AccessLog    bool
}

// Event is recorded whenever the served snapshots change.
type Event struct {
	ID        int64              `json:"id"`
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Snapshots []SnapshotResponse `json:"snapshots"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time          `json:"started_at"`
	LastPollAt      time.Time          `json:"last_poll_at"`
	PollIntervalSec int                `json:"poll_interval_sec"`
	PollCount       int64              `json:"poll_count"`
	Addr            string             `json:"addr"`
	Snapshots       []SnapshotResponse `json:"snapshots"`
	LastError       string             `json:"last_error,omitempty"`
	EventCount      int                `json:"event_count"`
}

// Server provides the HTTP API and the cache warmer.
type Server struct {
	cfg    Config
	engine Engine
	app    *fiber.App

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	snapshots   []SnapshotResponse
	nextEventID int64
	events      []Event
}

// New returns a server for engine with its routes registered.
func New(engine Engine, cfg Config) *Server {
	if cfg.Interval < time.Minute {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 100
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		startedAt: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "stimmo",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          2 * time.Minute,
	})
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	h := NewHandler(engine)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok\n")
	})
	app.Get("/v1/status", s.handleStatus)
	app.Get("/v1/events", s.handleEvents)
	app.Post("/v1/refresh", s.handleRefresh)
	app.Get("/v1/domains", h.GetDomains)
	app.Get("/v1/trend", h.GetTrend)
	app.Get("/v1/explore", h.GetExplore)
	app.Get("/v1/listings", h.GetListings)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves HTTP and refreshes the dataset cache until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.cfg.Addr); err != nil {
			errCh <- err
		}
	}()
	log.Printf("stimmo server listening on %s", s.cfg.Addr)

	// Seed the cache so the first request is served warm.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.app.ShutdownWithContext(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}
	}
}

func (s *Server) pollOnce(ctx context.Context) {
	snaps, err := s.engine.Snapshots(ctx)
	now := time.Now()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("stimmo refresh error: %v", err)
	}

	current := make([]SnapshotResponse, 0, len(snaps))
	for _, sn := range snaps {
		current = append(current, NewSnapshotResponse(sn))
	}

	s.mu.Lock()
	prev := s.snapshots
	s.lastPollAt = now
	s.pollCount++
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		return
	}
	s.lastError = ""
	s.snapshots = current

	var ev *Event
	if changed(prev, current) {
		typ := "refresh"
		if prev == nil {
			typ = "snapshot"
		}
		s.nextEventID++
		ev = &Event{ID: s.nextEventID, Type: typ, Timestamp: now, Snapshots: current}
	}
	if ev != nil {
		s.events = append(s.events, *ev)
		if len(s.events) > s.cfg.EventsBuffer {
			s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
		}
	}
	s.mu.Unlock()
}

func changed(prev, curr []SnapshotResponse) bool {
	if len(prev) != len(curr) {
		return true
	}
	for i := range prev {
		if prev[i].ID != curr[i].ID {
			return true
		}
	}
	return false
}

// Status returns the current runtime status.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots
	if snaps == nil {
		snaps = []SnapshotResponse{}
	}
	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Addr:            s.cfg.Addr,
		Snapshots:       snaps,
		LastError:       s.lastError,
		EventCount:      len(s.events),
	}
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	return c.JSON(events)
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	s.engine.Invalidate()
	s.pollOnce(c.Context())

	st := s.Status()
	if st.LastError != "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "datastore_unavailable",
			Message: st.LastError,
		})
	}
	return c.JSON(st)
}
