package scheduler

import (
	"context"
	"log/slog"
	"time"

	"rsvpd/src-server/metric"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"
)

// Reconcile repairs every waitlist once per RECONCILE_INTERVAL. It fills
// slots left vacant by a failed promotion or by a capacity increase.
func Reconcile(as *utils.AppState) {
	interval := as.Config.GetReconcileInterval()
	if interval == 0 {
		slog.Info("reconcile sweep disabled")
		return
	}

	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-*gracefulShutdownCh:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		startTimer := time.Now()
		result, err := as.Engine.RunReconcileSweep(ctx)
		cancel()
		if err != nil {
			slog.Error("Reconcile: some events can't be reconciled", "error", err)
		}
		if result == nil {
			continue
		}
		utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
		metric.ObserveReconcile(result)
		notify.DispatchPromoted(as.Notifier, as.Config.GetNotifyTimeout(), result.PromotedRecords)
		slog.Debug("reconcile sweep done",
			"events", result.Events,
			"resequenced", result.Resequenced,
			"promoted", result.Promoted,
			"took", time.Since(startTimer))
	}
}
