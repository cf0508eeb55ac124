package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// ReconcileEvent repairs one event's waitlist: positions are made dense again
// and free confirmed slots are filled from the head of the waitlist. It
// converges on the state a fault-free history would have produced, so it is
// safe to run at any time.
func (e *Engine) ReconcileEvent(ctx context.Context, eventID string) (*ReconcileResult, error) {
	const op = "(*Engine).ReconcileEvent"
	if eventID == "" {
		return nil, validationErr(op, "event id is blank")
	}
	info, err := e.lookupEvent(ctx, op, eventID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Events: 1}
	if err := e.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		resequenced, err := Resequence(ctx, tx, eventID)
		if err != nil {
			return err
		}
		result.Resequenced = resequenced

		promoted, err := e.promote(ctx, tx, info)
		if err != nil {
			return err
		}
		result.Promoted = len(promoted)
		result.PromotedRecords = promoted
		return nil
	}); err != nil {
		return nil, err
	}

	if result.Resequenced > 0 || result.Promoted > 0 {
		slog.Warn("attendance reconciled", "event_id", eventID, "resequenced", result.Resequenced, "promoted", result.Promoted)
	}
	return result, nil
}

// RunReconcileSweep reconciles every event that has a waitlist. Events whose
// reconciliation fails are skipped and reported in the joined error.
func (e *Engine) RunReconcileSweep(ctx context.Context) (*ReconcileResult, error) {
	const op = "(*Engine).RunReconcileSweep"

	var eventIDs []string
	if err := e.db.NewSelect().
		Model((*model.AttendanceRecord)(nil)).
		ColumnExpr("DISTINCT event_id").
		Where("status = ?", model.ATTENDANCE_STATUS_WAITLISTED).
		OrderExpr("event_id ASC").
		Scan(ctx, &eventIDs); err != nil {
		return nil, storeErr(op, fmt.Errorf("can't get events with a waitlist: %w", err))
	}

	total := new(ReconcileResult)
	var errs []error
	for _, eventID := range eventIDs {
		if err := ctx.Err(); err != nil {
			return total, storeErr(op, err)
		}
		result, err := e.ReconcileEvent(ctx, eventID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total.Events += result.Events
		total.Resequenced += result.Resequenced
		total.Promoted += result.Promoted
		total.PromotedRecords = append(total.PromotedRecords, result.PromotedRecords...)
	}
	return total, errors.Join(errs...)
}
