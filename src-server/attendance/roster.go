package attendance

import (
	"context"
	"fmt"

	"rsvpd/src-server/model"
)

// GetRecord returns the record of (eventID, userID).
func (e *Engine) GetRecord(ctx context.Context, eventID, userID string) (*model.AttendanceRecord, error) {
	const op = "(*Engine).GetRecord"
	record, err := findRecord(ctx, e.db, eventID, userID)
	switch {
	case err != nil:
		return nil, storeErr(op, err)
	case record == nil:
		return nil, notFoundErr(op, "user %q has no record for event %q", userID, eventID)
	}
	return record, nil
}

func (e *Engine) GetRecordByID(ctx context.Context, recordID string) (*model.AttendanceRecord, error) {
	const op = "(*Engine).GetRecordByID"
	record, err := findRecordByID(ctx, e.db, op, recordID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return record, nil
}

// EventRoster lists the going records by join time and the waitlist in
// promotion order.
func (e *Engine) EventRoster(ctx context.Context, eventID string) (*Roster, error) {
	const op = "(*Engine).EventRoster"
	if eventID == "" {
		return nil, validationErr(op, "event id is blank")
	}
	info, err := e.lookupEvent(ctx, op, eventID)
	if err != nil {
		return nil, err
	}

	records := make([]*model.AttendanceRecord, 0)
	if err := e.db.NewSelect().
		Model(&records).
		Where("event_id = ?", eventID).
		OrderExpr("waitlist_position ASC, created_at ASC, id ASC").
		Scan(ctx); err != nil {
		return nil, storeErr(op, fmt.Errorf("can't get attendance records: %w", err))
	}

	roster := &Roster{
		EventID:  eventID,
		Capacity: info.capacity,
		Limited:  info.limited,
		Going:    make([]*model.AttendanceRecord, 0),
		Waitlist: make([]*model.AttendanceRecord, 0),
	}
	for _, record := range records {
		switch record.Status {
		case model.ATTENDANCE_STATUS_GOING:
			roster.Going = append(roster.Going, record)
		case model.ATTENDANCE_STATUS_WAITLISTED:
			roster.Waitlist = append(roster.Waitlist, record)
		case model.ATTENDANCE_STATUS_INTERESTED:
			roster.Interested++
		case model.ATTENDANCE_STATUS_NOT_GOING:
			roster.NotGoing++
		}
	}
	return roster, nil
}
