// Package sweeper removes expired verification codes in the background.
// Expiry is otherwise only enforced logically at read time, so without the
// sweep abandoned codes would accumulate forever.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eventribe/eventribe/internal/plugins/auth"
)

// Sweeper runs the periodic cleanup of expired verification codes.
type Sweeper struct {
	codes auth.CodeRepository
	cron  *cron.Cron
}

// New creates a sweeper over the given code repository.
func New(codes auth.CodeRepository) *Sweeper {
	return &Sweeper{
		codes: codes,
		cron:  cron.New(),
	}
}

// Start runs one immediate sweep and then schedules an hourly one. Returns
// an error only if the schedule cannot be registered.
func (s *Sweeper) Start() error {
	s.sweep()

	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()

	slog.Info("verification code sweeper started", slog.String("schedule", "@hourly"))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		slog.Error("sweeping expired verification codes failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		slog.Info("swept expired verification codes", slog.Int64("removed", n))
	}
}
