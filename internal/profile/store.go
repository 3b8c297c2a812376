package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/paybot/core/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registeredTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "paybot_profiles_registered_total",
	Help: "User profiles created since start.",
})

// Profile is the identity snapshot taken on first contact.
type Profile struct {
	UserID       int64
	Username     string
	FirstName    string
	LastName     string
	RegisteredAt time.Time
}

// RegisteredAtISO returns the registration time as UTC ISO-8601.
func (p Profile) RegisteredAtISO() string {
	return p.RegisteredAt.UTC().Format(time.RFC3339Nano)
}

// Store is the process-wide profile table. Entries are created once and never changed.
type Store struct {
	mu       sync.RWMutex
	profiles map[int64]Profile
	now      func() time.Time
}

// NewStore returns an empty table.
func NewStore() *Store {
	return &Store{
		profiles: make(map[int64]Profile),
		now:      time.Now,
	}
}

// Register stores p unless a profile for p.UserID exists. It returns the
// stored profile and whether it was created by this call.
func (s *Store) Register(ctx context.Context, p Profile) (Profile, bool) {
	s.mu.Lock()
	if existing, ok := s.profiles[p.UserID]; ok {
		s.mu.Unlock()
		return existing, false
	}
	p.RegisteredAt = s.now().UTC()
	s.profiles[p.UserID] = p
	s.mu.Unlock()

	registeredTotal.Inc()
	logger.Info(ctx, "service.profiles", "profile.created",
		slog.String("status", "ok"),
		slog.Int64("user_id", p.UserID),
		slog.String("username", logger.SanitizeLimit(p.Username, 64)),
		slog.String("registered_at", p.RegisteredAtISO()),
	)
	return p, true
}

// Get returns the profile for userID.
func (s *Store) Get(userID int64) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok
}

// Count reports how many profiles exist.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
