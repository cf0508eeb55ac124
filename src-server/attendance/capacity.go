package attendance

import (
	"context"
	"fmt"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// CountGoing is the capacity oracle: the number of records of eventID that
// hold a confirmed slot right now. Pass a bun.Tx to count inside the same
// transaction that acts on the answer.
func CountGoing(ctx context.Context, db bun.IDB, eventID string) (int, error) {
	count, err := db.NewSelect().
		Model((*model.AttendanceRecord)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", model.ATTENDANCE_STATUS_GOING).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("CountGoing: %w", err)
	}
	return count, nil
}

// GoingCount reads the current going count outside any transaction.
func (e *Engine) GoingCount(ctx context.Context, eventID string) (int, error) {
	count, err := CountGoing(ctx, e.db, eventID)
	if err != nil {
		return 0, storeErr("(*Engine).GoingCount", err)
	}
	return count, nil
}
