package workers

import (
	"context"
	"log/slog"
	"time"
)

type StreamSweeper interface {
	Sweep() int
}

// streamJanitor periodically drops expired entries from the pending stream
// repository so abandoned submits don't accumulate.
type streamJanitor struct {
	sweeper  StreamSweeper
	interval time.Duration
}

func NewStreamJanitor(sweeper StreamSweeper, interval time.Duration) *streamJanitor {
	return &streamJanitor{
		sweeper:  sweeper,
		interval: interval,
	}
}

func (s *streamJanitor) Name() string { return "stream_janitor" }

func (s *streamJanitor) Run(ctx context.Context) error {
	slog.Info("Starting worker", "name", s.Name(), "interval", s.interval)
	defer slog.Info("Worker stopped", "name", s.Name())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.sweeper.Sweep(); n > 0 {
				slog.Debug("Swept expired streams", "count", n)
			}
		}
	}
}
