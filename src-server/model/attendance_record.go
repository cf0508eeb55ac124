package model

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AttendanceStatus string

const (
	ATTENDANCE_STATUS_GOING      = AttendanceStatus("going")
	ATTENDANCE_STATUS_INTERESTED = AttendanceStatus("interested")
	ATTENDANCE_STATUS_NOT_GOING  = AttendanceStatus("not_going")
	// derived outcome, never requested directly
	ATTENDANCE_STATUS_WAITLISTED = AttendanceStatus("waitlisted")
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case ATTENDANCE_STATUS_GOING,
		ATTENDANCE_STATUS_INTERESTED,
		ATTENDANCE_STATUS_NOT_GOING,
		ATTENDANCE_STATUS_WAITLISTED:
		return true
	}
	return false
}

type AttendanceMode string

const (
	ATTENDANCE_MODE_IN_PERSON = AttendanceMode("in_person")
	ATTENDANCE_MODE_ONLINE    = AttendanceMode("online")
)

func (m AttendanceMode) Valid() bool {
	return m == ATTENDANCE_MODE_IN_PERSON || m == ATTENDANCE_MODE_ONLINE
}

type ConfirmationStatus string

const (
	CONFIRMATION_STATUS_PENDING    = ConfirmationStatus("pending")
	CONFIRMATION_STATUS_CONFIRMED  = ConfirmationStatus("confirmed")
	CONFIRMATION_STATUS_BAILED_OUT = ConfirmationStatus("bailed_out")
)

// AttendanceRecord is the one row per (event, user) pair. Empty strings and
// zero integers in the nullzero columns are stored as NULL.
type AttendanceRecord struct {
	bun.BaseModel `bun:"table:attendance_records"`

	ID      string `bun:"id,pk"`            // required
	EventID string `bun:"event_id,notnull"` // required
	UserID  string `bun:"user_id,notnull"`  // required

	Status           AttendanceStatus `bun:"status,notnull,type:varchar"` // required
	WaitlistPosition int              `bun:"waitlist_position,nullzero"`
	AttendanceMode   AttendanceMode   `bun:"attendance_mode,nullzero,type:varchar"`
	RequestedMode    AttendanceMode   `bun:"requested_mode,nullzero,type:varchar"` // applied on promotion

	ConfirmationStatus        ConfirmationStatus `bun:"confirmation_status,nullzero,type:varchar"`
	ConfirmationSentAtUnixUTC int64              `bun:"confirmation_sent_at,nullzero"`
	RespondedAtUnixUTC        int64              `bun:"responded_at,nullzero"`
	BailReason                string             `bun:"bail_reason,nullzero"`

	CreatedAtUnixUTC int64 `bun:"created_at,notnull"`
	UpdatedAtUnixUTC int64 `bun:"updated_at,notnull"`
}

// Check verifies the per-row invariants: the position is set exactly when
// the record is waitlisted, and confirmation state only lives on going rows
// (or on a bailed-out row that left the going list).
func (r *AttendanceRecord) Check() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("(*AttendanceRecord).Check: id is blank")
	case r.EventID == "":
		return fmt.Errorf("(*AttendanceRecord).Check: event id is blank")
	case r.UserID == "":
		return fmt.Errorf("(*AttendanceRecord).Check: user id is blank")
	case !r.Status.Valid():
		return fmt.Errorf("(*AttendanceRecord).Check: invalid status %q", r.Status)
	case r.Status == ATTENDANCE_STATUS_WAITLISTED && r.WaitlistPosition <= 0:
		return fmt.Errorf("(*AttendanceRecord).Check: waitlisted record without a position")
	case r.Status != ATTENDANCE_STATUS_WAITLISTED && r.WaitlistPosition != 0:
		return fmt.Errorf("(*AttendanceRecord).Check: position set on a %s record", r.Status)
	case r.AttendanceMode != "" && !r.AttendanceMode.Valid():
		return fmt.Errorf("(*AttendanceRecord).Check: invalid attendance mode %q", r.AttendanceMode)
	case r.AttendanceMode != "" &&
		r.Status != ATTENDANCE_STATUS_GOING &&
		r.Status != ATTENDANCE_STATUS_INTERESTED:
		return fmt.Errorf("(*AttendanceRecord).Check: attendance mode on a %s record", r.Status)
	case r.RequestedMode != "" && !r.RequestedMode.Valid():
		return fmt.Errorf("(*AttendanceRecord).Check: invalid requested mode %q", r.RequestedMode)
	case r.RequestedMode != "" && r.Status != ATTENDANCE_STATUS_WAITLISTED:
		return fmt.Errorf("(*AttendanceRecord).Check: requested mode on a %s record", r.Status)
	case r.ConfirmationStatus != "" &&
		r.Status != ATTENDANCE_STATUS_GOING &&
		r.ConfirmationStatus != CONFIRMATION_STATUS_BAILED_OUT:
		return fmt.Errorf("(*AttendanceRecord).Check: confirmation status on a %s record", r.Status)
	}
	return nil
}

// Upsert writes the record keyed by (event_id, user_id). An existing row keeps
// its id and created_at; every mutable column is overwritten.
func (r *AttendanceRecord) Upsert(ctx context.Context, db bun.IDB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC().Unix()
	if r.CreatedAtUnixUTC == 0 {
		r.CreatedAtUnixUTC = now
	}
	if r.UpdatedAtUnixUTC == 0 {
		r.UpdatedAtUnixUTC = now
	}
	if err := r.Check(); err != nil {
		return fmt.Errorf("(*AttendanceRecord).Upsert: %w", err)
	}

	if _, err := db.NewInsert().
		Model(r).
		On("CONFLICT (event_id, user_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("waitlist_position = EXCLUDED.waitlist_position").
		Set("attendance_mode = EXCLUDED.attendance_mode").
		Set("requested_mode = EXCLUDED.requested_mode").
		Set("confirmation_status = EXCLUDED.confirmation_status").
		Set("confirmation_sent_at = EXCLUDED.confirmation_sent_at").
		Set("responded_at = EXCLUDED.responded_at").
		Set("bail_reason = EXCLUDED.bail_reason").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*AttendanceRecord).Upsert: %w", err)
	}

	return nil
}
