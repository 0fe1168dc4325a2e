package worker

import (
	"context"
	"log/slog"
)

type SessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// SessionSweeper deletes expired sessions.
type SessionSweeper struct {
	sessions SessionPurger
	logger   *slog.Logger
}

func NewSessionSweeper(sessions SessionPurger, logger *slog.Logger) *SessionSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{sessions: sessions, logger: logger}
}

func (s *SessionSweeper) Run(ctx context.Context) error {
	purged, err := s.sessions.Purge(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("expired sessions purged", "count", purged)
	}
	return nil
}
