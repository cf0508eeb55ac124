// Package attendance is the attendance lifecycle engine: the RSVP state
// machine, the capacity-bounded FIFO waitlist, promotion into freed slots and
// the day-of confirmation flow.
//
// The engine keeps no in-memory state about events. Every decision that
// reads and then writes runs inside one database transaction, and the store
// is opened so that a transaction takes the write lock before its first read
// (see model.DSN). Any number of engines, in any number of processes, can
// share one database.
package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// EventProvider answers questions about events owned by the event service.
type EventProvider interface {
	EventExists(ctx context.Context, eventID string) (bool, error)
	// limited is false when the event has no capacity limit
	GetCapacity(ctx context.Context, eventID string) (capacity int, limited bool, err error)
	SupportsDualMode(ctx context.Context, eventID string) (bool, error)
	// ids of events whose start lies in [from, to)
	EventsStartingBetween(ctx context.Context, from, to time.Time) ([]string, error)
}

// UserProvider is optional; without one every user id is accepted.
type UserProvider interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

type NotificationType string

const (
	NOTIFICATION_WAITLISTED             = NotificationType("rsvp.waitlisted")
	NOTIFICATION_PROMOTED               = NotificationType("rsvp.promoted")
	NOTIFICATION_CONFIRMATION_REQUESTED = NotificationType("attendance.confirmation_requested")
)

// Notifier delivers a message to one user. The engine only calls it from the
// confirmation sweep; everything else is notified by the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, notificationType NotificationType, payload map[string]string) error
}

type Engine struct {
	db       *bun.DB
	events   EventProvider
	users    UserProvider
	notifier Notifier
	location *time.Location
	now      func() time.Time
}

type Option func(*Engine)

func WithUserProvider(users UserProvider) Option {
	return func(e *Engine) { e.users = users }
}

func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// WithLocation sets the timezone that decides what "today" means for the
// confirmation sweep. Defaults to time.Local.
func WithLocation(location *time.Location) Option {
	return func(e *Engine) { e.location = location }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(db *bun.DB, events EventProvider, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		events:   events,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// eventInfo is what the state machine needs to know about an event.
type eventInfo struct {
	id       string
	capacity int
	limited  bool
	dualMode bool
}

func (e *Engine) lookupEvent(ctx context.Context, op string, eventID string) (*eventInfo, error) {
	exists, err := e.events.EventExists(ctx, eventID)
	switch {
	case err != nil:
		return nil, storeErr(op, fmt.Errorf("can't check if event exists: %w", err))
	case !exists:
		return nil, notFoundErr(op, "event %q not found", eventID)
	}

	info := &eventInfo{id: eventID}
	info.capacity, info.limited, err = e.events.GetCapacity(ctx, eventID)
	if err != nil {
		return nil, storeErr(op, fmt.Errorf("can't get event capacity: %w", err))
	}
	if info.limited && info.capacity <= 0 {
		return nil, storeErr(op, fmt.Errorf("event %q has a non-positive capacity %d", eventID, info.capacity))
	}
	info.dualMode, err = e.events.SupportsDualMode(ctx, eventID)
	if err != nil {
		return nil, storeErr(op, fmt.Errorf("can't get event attendance modes: %w", err))
	}
	return info, nil
}

func (e *Engine) checkUser(ctx context.Context, op string, userID string) error {
	if e.users == nil {
		return nil
	}
	exists, err := e.users.UserExists(ctx, userID)
	switch {
	case err != nil:
		return storeErr(op, fmt.Errorf("can't check if user exists: %w", err))
	case !exists:
		return notFoundErr(op, "user %q not found", userID)
	}
	return nil
}

// inTx runs fn in one transaction and classifies the error.
func (e *Engine) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx bun.Tx) error) error {
	if err := e.db.RunInTx(ctx, &sql.TxOptions{}, fn); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (e *Engine) nowUnix() int64 {
	return e.now().UTC().Unix()
}

// findRecord returns nil, nil when the pair has no record.
func findRecord(ctx context.Context, db bun.IDB, eventID, userID string) (*model.AttendanceRecord, error) {
	record := new(model.AttendanceRecord)
	err := db.NewSelect().
		Model(record).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return record, nil
}

func findRecordByID(ctx context.Context, db bun.IDB, op string, recordID string) (*model.AttendanceRecord, error) {
	record := new(model.AttendanceRecord)
	err := db.NewSelect().
		Model(record).
		Where("id = ?", recordID).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFoundErr(op, "attendance record %q not found", recordID)
	case err != nil:
		return nil, err
	}
	return record, nil
}

// enterGoing resets the day-of confirmation state for a record that just
// took a confirmed slot.
func enterGoing(record *model.AttendanceRecord) {
	if record.RequestedMode != "" {
		record.AttendanceMode = record.RequestedMode
		record.RequestedMode = ""
	}
	record.Status = model.ATTENDANCE_STATUS_GOING
	record.WaitlistPosition = 0
	record.ConfirmationStatus = model.CONFIRMATION_STATUS_PENDING
	record.ConfirmationSentAtUnixUTC = 0
	record.RespondedAtUnixUTC = 0
	record.BailReason = ""
}

func clearConfirmation(record *model.AttendanceRecord) {
	record.ConfirmationStatus = ""
	record.ConfirmationSentAtUnixUTC = 0
	record.RespondedAtUnixUTC = 0
	record.BailReason = ""
}
