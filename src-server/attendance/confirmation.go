package attendance

import (
	"context"
	"fmt"
	"unicode/utf8"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

const maxBailReasonLength = 500

// ConfirmAttendance records that the owner of a going record still intends
// to come. Confirming twice is a no-op.
func (e *Engine) ConfirmAttendance(ctx context.Context, recordID, callerUserID string) (*model.AttendanceRecord, error) {
	const op = "(*Engine).ConfirmAttendance"
	switch {
	case recordID == "":
		return nil, validationErr(op, "record id is blank")
	case callerUserID == "":
		return nil, validationErr(op, "caller user id is blank")
	}

	var record *model.AttendanceRecord
	if err := e.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		var err error
		record, err = findRecordByID(ctx, tx, op, recordID)
		if err != nil {
			return err
		}
		if err := checkRespondable(op, record, callerUserID); err != nil {
			return err
		}
		if record.ConfirmationStatus == model.CONFIRMATION_STATUS_CONFIRMED {
			return nil
		}

		record.ConfirmationStatus = model.CONFIRMATION_STATUS_CONFIRMED
		record.RespondedAtUnixUTC = e.nowUnix()
		record.UpdatedAtUnixUTC = record.RespondedAtUnixUTC
		if _, err := tx.NewUpdate().
			Model(record).
			Column("confirmation_status", "responded_at", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("can't confirm attendance: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return record, nil
}

// BailOut gives up the confirmed slot of a going record and promotes the
// head of the waitlist into it, in one transaction. The record stays as
// not_going with confirmation status bailed_out and the optional reason.
func (e *Engine) BailOut(ctx context.Context, recordID, callerUserID, reason string) (*BailOutResult, error) {
	const op = "(*Engine).BailOut"
	switch {
	case recordID == "":
		return nil, validationErr(op, "record id is blank")
	case callerUserID == "":
		return nil, validationErr(op, "caller user id is blank")
	case utf8.RuneCountInString(reason) > maxBailReasonLength:
		return nil, validationErr(op, "reason is longer than %d characters", maxBailReasonLength)
	}

	// the event of a record never changes, so it can be read before the
	// transaction that acts on it
	current, err := findRecordByID(ctx, e.db, op, recordID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	info, err := e.lookupEvent(ctx, op, current.EventID)
	if err != nil {
		return nil, err
	}

	result := new(BailOutResult)
	if err := e.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRecordByID(ctx, tx, op, recordID)
		if err != nil {
			return err
		}
		if err := checkRespondable(op, record, callerUserID); err != nil {
			return err
		}

		record.Status = model.ATTENDANCE_STATUS_NOT_GOING
		record.WaitlistPosition = 0
		record.AttendanceMode = ""
		record.ConfirmationStatus = model.CONFIRMATION_STATUS_BAILED_OUT
		record.BailReason = reason
		record.RespondedAtUnixUTC = e.nowUnix()
		record.UpdatedAtUnixUTC = record.RespondedAtUnixUTC
		if _, err := tx.NewUpdate().
			Model(record).
			Column(
				"status",
				"waitlist_position",
				"attendance_mode",
				"confirmation_status",
				"bail_reason",
				"responded_at",
				"updated_at",
			).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("can't bail out: %w", err)
		}
		result.Record = record

		result.Promoted, err = e.promote(ctx, tx, info)
		return err
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func checkRespondable(op string, record *model.AttendanceRecord, callerUserID string) error {
	if record.UserID != callerUserID {
		return authorizationErr(op, "record %q doesn't belong to user %q", record.ID, callerUserID)
	}
	if record.Status != model.ATTENDANCE_STATUS_GOING {
		return invalidStateErr(op, "record %q is %s, not going", record.ID, record.Status)
	}
	return nil
}
