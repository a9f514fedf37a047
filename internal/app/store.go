package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ViewStore keeps the open views by id.
type ViewStore struct {
	mu      sync.RWMutex
	views   map[string]*View
	idleTTL time.Duration
	log     *zap.Logger
}

func NewViewStore(idleTTL time.Duration, log *zap.Logger) *ViewStore {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &ViewStore{views: make(map[string]*View), idleTTL: idleTTL, log: log}
}

func (s *ViewStore) newID() string {
	return uuid.NewString()
}

func (s *ViewStore) Put(v *View) {
	s.mu.Lock()
	s.views[v.ID] = v
	s.mu.Unlock()
}

func (s *ViewStore) Get(id string) (*View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	return v, ok
}

// Remove closes and forgets the view.
func (s *ViewStore) Remove(id string) bool {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if ok {
		v.Close()
	}
	return ok
}

func (s *ViewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// Sweep closes views untouched for longer than the idle TTL and returns how
// many were dropped.
func (s *ViewStore) Sweep(now time.Time) int {
	var stale []string
	s.mu.RLock()
	for id, v := range s.views {
		if now.Sub(v.idleSince()) > s.idleTTL {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()
	n := 0
	for _, id := range stale {
		if s.Remove(id) {
			n++
		}
	}
	return n
}

// StartSweeper schedules Sweep on schedule (standard cron syntax or
// descriptors like "@every 1m"). Stop the returned cron on shutdown.
func (a *App) StartSweeper(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := a.Views.Sweep(a.now()); n > 0 {
			a.Log.Info("swept idle views", zap.Int("count", n), zap.Int("open", a.Views.Len()))
		}
		if p, ok := a.Cache.(interface{ Purge() int }); ok {
			p.Purge()
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
