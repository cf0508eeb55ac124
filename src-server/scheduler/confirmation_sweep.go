package scheduler

import (
	"context"
	"log/slog"
	"time"

	"rsvpd/src-server/metric"
	"rsvpd/src-server/utils"
)

// ConfirmationSweep prompts today's going attendees every
// CONFIRMATION_SWEEP_INTERVAL until shutdown. An interval of 0 leaves the
// sweep to an external scheduler (rsvpd --sweep-once).
func ConfirmationSweep(as *utils.AppState) {
	interval := as.Config.GetConfirmationSweepInterval()
	if interval == 0 {
		slog.Info("in-process confirmation sweep disabled")
		return
	}

	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		SweepOnce(as, time.Now())
		select {
		case <-*gracefulShutdownCh:
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce runs one confirmation sweep with "today" taken from at.
func SweepOnce(as *utils.AppState, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout(as))
	defer cancel()

	startTimer := time.Now()
	result, err := as.Engine.RunConfirmationSweepAt(ctx, at)
	if err != nil {
		slog.Error("ConfirmationSweep: sweep failed", "error", err)
	}
	if result == nil {
		return
	}
	utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
	metric.ObserveSweep(result)
	slog.Info("confirmation sweep done",
		"processed", result.Processed,
		"sent", result.Sent,
		"failed", result.Failed,
		"took", time.Since(startTimer))
}

// sweepTimeout bounds one sweep so a stuck notifier can't hold the loop past
// the next tick.
func sweepTimeout(as *utils.AppState) time.Duration {
	if interval := as.Config.GetConfirmationSweepInterval(); interval > 0 {
		return interval
	}
	return time.Hour
}
