package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// RunConfirmationSweep prompts every going attendee of today's events who
// hasn't been prompted yet.
func (e *Engine) RunConfirmationSweep(ctx context.Context) (*SweepResult, error) {
	return e.RunConfirmationSweepAt(ctx, e.now())
}

// RunConfirmationSweepAt is RunConfirmationSweep with "today" taken from at,
// in the engine's location.
//
// A due record is claimed by setting confirmation_sent_at where it is still
// NULL before the prompt goes out, so concurrent sweeps never prompt one
// record twice. A failed send releases the claim and the next sweep retries
// it. Records are only ever selected while confirmation_sent_at is NULL,
// which makes repeated sweeps safe.
func (e *Engine) RunConfirmationSweepAt(ctx context.Context, at time.Time) (*SweepResult, error) {
	const op = "(*Engine).RunConfirmationSweep"
	if e.notifier == nil {
		return nil, invalidStateErr(op, "no notifier configured")
	}

	local := at.In(e.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	eventIDs, err := e.events.EventsStartingBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, storeErr(op, fmt.Errorf("can't get today's events: %w", err))
	}
	result := new(SweepResult)
	if len(eventIDs) == 0 {
		return result, nil
	}

	due := make([]model.AttendanceRecord, 0)
	if err := e.db.NewSelect().
		Model(&due).
		Where("event_id IN (?)", bun.In(eventIDs)).
		Where("status = ?", model.ATTENDANCE_STATUS_GOING).
		Where("confirmation_sent_at IS NULL").
		OrderExpr("event_id ASC, created_at ASC").
		Scan(ctx); err != nil {
		return nil, storeErr(op, fmt.Errorf("can't get due records: %w", err))
	}

	sentAt := at.UTC().Unix()
	for _, record := range due {
		if err := ctx.Err(); err != nil {
			return result, storeErr(op, err)
		}
		result.Processed++

		claimed, err := e.claimPrompt(ctx, record.ID, sentAt)
		if err != nil {
			slog.Error("can't claim confirmation prompt", "record_id", record.ID, "error", err)
			result.Failed++
			continue
		}
		if !claimed {
			// another sweep got there first, or the record left going
			continue
		}

		if err := e.notifier.Notify(ctx, record.UserID, NOTIFICATION_CONFIRMATION_REQUESTED, map[string]string{
			"record_id": record.ID,
			"event_id":  record.EventID,
			"sent_at":   strconv.FormatInt(sentAt, 10),
		}); err != nil {
			slog.Warn("can't send confirmation prompt", "record_id", record.ID, "user_id", record.UserID, "error", err)
			result.Failed++
			if err := e.releasePrompt(ctx, record.ID, sentAt); err != nil {
				slog.Error("can't release confirmation prompt claim", "record_id", record.ID, "error", err)
			}
			continue
		}
		result.Sent++
	}

	return result, nil
}

func (e *Engine) claimPrompt(ctx context.Context, recordID string, sentAt int64) (bool, error) {
	res, err := e.db.NewUpdate().
		Model((*model.AttendanceRecord)(nil)).
		Set("confirmation_sent_at = ?", sentAt).
		Where("id = ?", recordID).
		Where("status = ?", model.ATTENDANCE_STATUS_GOING).
		Where("confirmation_sent_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (e *Engine) releasePrompt(ctx context.Context, recordID string, sentAt int64) error {
	_, err := e.db.NewUpdate().
		Model((*model.AttendanceRecord)(nil)).
		Set("confirmation_sent_at = NULL").
		Where("id = ?", recordID).
		Where("confirmation_sent_at = ?", sentAt).
		Exec(ctx)
	return err
}
