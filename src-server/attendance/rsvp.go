package attendance

import (
	"context"
	"fmt"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// ApplyRsvp moves the (eventID, userID) record to the requested status.
//
// Only going can be refused: on a capacity-limited event that is full, the
// record joins the end of the waitlist and the outcome says so. A record that
// is already waitlisted keeps its position when going is requested again.
// Leaving going frees a slot and promotes the head of the waitlist; leaving
// the waitlist closes the gap. All of it happens in one transaction.
func (e *Engine) ApplyRsvp(
	ctx context.Context,
	eventID string,
	userID string,
	status model.AttendanceStatus,
	mode model.AttendanceMode,
) (*Outcome, error) {
	const op = "(*Engine).ApplyRsvp"

	// #region - validate
	switch {
	case eventID == "":
		return nil, validationErr(op, "event id is blank")
	case userID == "":
		return nil, validationErr(op, "user id is blank")
	}
	switch status {
	case model.ATTENDANCE_STATUS_GOING,
		model.ATTENDANCE_STATUS_INTERESTED,
		model.ATTENDANCE_STATUS_NOT_GOING:
	default:
		return nil, validationErr(op, "status %q can't be requested", status)
	}
	if mode != "" && !mode.Valid() {
		return nil, validationErr(op, "unknown attendance mode %q", mode)
	}

	info, err := e.lookupEvent(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	if err := e.checkUser(ctx, op, userID); err != nil {
		return nil, err
	}

	if info.dualMode && status == model.ATTENDANCE_STATUS_GOING && mode == "" {
		return nil, validationErr(op, "attendance mode is required for event %q", eventID)
	}
	if !info.dualMode || status == model.ATTENDANCE_STATUS_NOT_GOING {
		mode = ""
	}
	// #endregion

	var outcome *Outcome
	if err := e.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findRecord(ctx, tx, eventID, userID)
		if err != nil {
			return fmt.Errorf("can't get attendance record: %w", err)
		}

		record := &model.AttendanceRecord{
			EventID: eventID,
			UserID:  userID,
		}
		var previous model.AttendanceStatus
		if existing != nil {
			copied := *existing
			record = &copied
			previous = existing.Status
		}
		record.AttendanceMode = mode
		record.RequestedMode = ""
		record.UpdatedAtUnixUTC = e.nowUnix()
		if record.CreatedAtUnixUTC == 0 {
			record.CreatedAtUnixUTC = record.UpdatedAtUnixUTC
		}
		outcome = &Outcome{Kind: OUTCOME_CONFIRMED, Record: record}

		switch {
		case status != model.ATTENDANCE_STATUS_GOING:
			record.Status = status
			record.WaitlistPosition = 0
			clearConfirmation(record)

		case !info.limited, previous == model.ATTENDANCE_STATUS_GOING:
			if previous != model.ATTENDANCE_STATUS_GOING {
				enterGoing(record)
			}

		case previous == model.ATTENDANCE_STATUS_WAITLISTED:
			record.AttendanceMode, record.RequestedMode = "", mode
			outcome.Kind = OUTCOME_WAITLISTED
			outcome.Position = record.WaitlistPosition

		default:
			going, err := CountGoing(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if going < info.capacity {
				enterGoing(record)
				break
			}
			position, err := AssignNextPosition(ctx, tx, eventID)
			if err != nil {
				return err
			}
			record.Status = model.ATTENDANCE_STATUS_WAITLISTED
			record.WaitlistPosition = position
			record.AttendanceMode, record.RequestedMode = "", mode
			clearConfirmation(record)
			outcome.Kind = OUTCOME_WAITLISTED
			outcome.Position = position
		}

		if err := record.Upsert(ctx, tx); err != nil {
			return err
		}

		if previous == model.ATTENDANCE_STATUS_WAITLISTED && record.Status != model.ATTENDANCE_STATUS_WAITLISTED {
			if _, err := Resequence(ctx, tx, eventID); err != nil {
				return err
			}
		}
		if previous == model.ATTENDANCE_STATUS_GOING && record.Status != model.ATTENDANCE_STATUS_GOING {
			outcome.Promoted, err = e.promote(ctx, tx, info)
			if err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return outcome, nil
}
