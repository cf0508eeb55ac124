package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// OnSlotVacated promotes waitlisted records of eventID into free confirmed
// slots, lowest position first, and resequences the rest, all in one
// transaction. Cancellation and bail-out already do this inside their own
// transaction; this entry point is for callers that free a slot some other
// way.
func (e *Engine) OnSlotVacated(ctx context.Context, eventID string) ([]*model.AttendanceRecord, error) {
	const op = "(*Engine).OnSlotVacated"
	if eventID == "" {
		return nil, validationErr(op, "event id is blank")
	}
	info, err := e.lookupEvent(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	if !info.limited {
		return nil, nil
	}

	var promoted []*model.AttendanceRecord
	if err := e.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		var err error
		promoted, err = e.promote(ctx, tx, info)
		return err
	}); err != nil {
		return nil, err
	}
	return promoted, nil
}

// promote fills free slots from the head of the waitlist. A single vacancy
// promotes at most one record; nothing is promoted while the going count is
// at or above capacity, which also covers a capacity lowered by the event
// owner.
func (e *Engine) promote(ctx context.Context, db bun.IDB, info *eventInfo) ([]*model.AttendanceRecord, error) {
	if !info.limited {
		return nil, nil
	}

	var promoted []*model.AttendanceRecord
	for {
		going, err := CountGoing(ctx, db, info.id)
		if err != nil {
			return nil, fmt.Errorf("promote: %w", err)
		}
		if going >= info.capacity {
			break
		}

		head := new(model.AttendanceRecord)
		err = db.NewSelect().
			Model(head).
			Where("event_id = ?", info.id).
			Where("status = ?", model.ATTENDANCE_STATUS_WAITLISTED).
			OrderExpr("waitlist_position ASC, created_at ASC, id ASC").
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("promote: can't get waitlist head: %w", err)
		}

		enterGoing(head)
		head.UpdatedAtUnixUTC = e.nowUnix()
		if _, err := db.NewUpdate().
			Model(head).
			Column(
				"status",
				"waitlist_position",
				"attendance_mode",
				"requested_mode",
				"confirmation_status",
				"confirmation_sent_at",
				"responded_at",
				"bail_reason",
				"updated_at",
			).
			WherePK().
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("promote: can't promote %s: %w", head.ID, err)
		}
		slog.Debug("waitlisted attendee promoted", "event_id", info.id, "user_id", head.UserID, "record_id", head.ID)
		promoted = append(promoted, head)
	}

	if len(promoted) > 0 {
		if _, err := Resequence(ctx, db, info.id); err != nil {
			return nil, fmt.Errorf("promote: %w", err)
		}
	}
	return promoted, nil
}
