package attendance

import (
	"context"
	"fmt"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// CancelRsvp deletes the (eventID, userID) record. Cancelling a going record
// promotes the head of the waitlist before returning; cancelling a
// waitlisted one closes the gap. Cancelling a record that doesn't exist
// succeeds with Cancelled set to false, so retries are safe.
func (e *Engine) CancelRsvp(ctx context.Context, eventID, userID string) (*CancelResult, error) {
	const op = "(*Engine).CancelRsvp"
	switch {
	case eventID == "":
		return nil, validationErr(op, "event id is blank")
	case userID == "":
		return nil, validationErr(op, "user id is blank")
	}
	info, err := e.lookupEvent(ctx, op, eventID)
	if err != nil {
		return nil, err
	}

	result := new(CancelResult)
	if err := e.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findRecord(ctx, tx, eventID, userID)
		if err != nil {
			return fmt.Errorf("can't get attendance record: %w", err)
		}
		if existing == nil {
			return nil
		}

		if _, err := tx.NewDelete().
			Model((*model.AttendanceRecord)(nil)).
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't delete attendance record: %w", err)
		}
		result.Cancelled = true
		result.Previous = existing

		switch existing.Status {
		case model.ATTENDANCE_STATUS_WAITLISTED:
			if _, err := Resequence(ctx, tx, eventID); err != nil {
				return err
			}
		case model.ATTENDANCE_STATUS_GOING:
			result.Promoted, err = e.promote(ctx, tx, info)
			if err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}
