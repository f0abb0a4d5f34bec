package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db      Pinger
	storage string
	notify  string
}

// NewService constructs a health service. db may be nil when running on
// in-memory repositories.
func NewService(db Pinger, storage, notifyMode string) *Service {
	return &Service{db: db, storage: storage, notify: notifyMode}
}

// Status reports liveness plus the backends in use. ok is false only when a
// configured database does not answer.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	out := map[string]any{
		"ok":      true,
		"storage": s.storage,
		"notify":  s.notify,
	}
	if s.db == nil {
		out["database"] = "memory"
		return out, true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		out["ok"] = false
		out["database"] = "unavailable"
		return out, false
	}
	out["database"] = "postgres"
	return out, true
}
