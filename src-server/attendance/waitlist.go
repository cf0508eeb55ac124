package attendance

import (
	"context"
	"fmt"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// AssignNextPosition returns the position the next waitlisted record of
// eventID gets: one past the current maximum, or 1 for an empty waitlist.
// Call it with the transaction that inserts the record.
func AssignNextPosition(ctx context.Context, db bun.IDB, eventID string) (int, error) {
	var maxPosition int
	if err := db.NewSelect().
		Model((*model.AttendanceRecord)(nil)).
		ColumnExpr("COALESCE(MAX(waitlist_position), 0)").
		Where("event_id = ?", eventID).
		Where("status = ?", model.ATTENDANCE_STATUS_WAITLISTED).
		Scan(ctx, &maxPosition); err != nil {
		return 0, fmt.Errorf("AssignNextPosition: %w", err)
	}
	return maxPosition + 1, nil
}

// Resequence renumbers the waitlist of eventID to 1..N, keeping the relative
// order of the current positions (ties and missing positions fall back to
// join time). It returns how many records changed position.
//
// Changed rows are parked at negative positions first so the unique
// (event_id, waitlist_position) index never sees two rows on one value,
// whatever order the renumbering moves them in.
func Resequence(ctx context.Context, db bun.IDB, eventID string) (int, error) {
	waitlist := make([]model.AttendanceRecord, 0)
	if err := db.NewSelect().
		Model(&waitlist).
		Column("id", "waitlist_position").
		Where("event_id = ?", eventID).
		Where("status = ?", model.ATTENDANCE_STATUS_WAITLISTED).
		OrderExpr("waitlist_position IS NULL, waitlist_position ASC, created_at ASC, id ASC").
		Scan(ctx); err != nil {
		return 0, fmt.Errorf("Resequence: %w", err)
	}

	changed := 0
	for i, record := range waitlist {
		want := i + 1
		if record.WaitlistPosition == want {
			continue
		}
		if _, err := db.NewUpdate().
			Model((*model.AttendanceRecord)(nil)).
			Set("waitlist_position = ?", -want).
			Where("id = ?", record.ID).
			Exec(ctx); err != nil {
			return 0, fmt.Errorf("Resequence: %w", err)
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	if _, err := db.NewUpdate().
		Model((*model.AttendanceRecord)(nil)).
		Set("waitlist_position = -waitlist_position").
		Where("event_id = ?", eventID).
		Where("status = ?", model.ATTENDANCE_STATUS_WAITLISTED).
		Where("waitlist_position < 0").
		Exec(ctx); err != nil {
		return 0, fmt.Errorf("Resequence: %w", err)
	}

	return changed, nil
}
