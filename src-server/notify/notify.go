// Package notify delivers attendance notifications. Delivery is outside the
// attendance engine: the engine only hands a notification to a Notifier.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/model"
)

// Custom ID prefixes of the buttons attached to a confirmation prompt; the
// record id follows the prefix.
const (
	CONFIRM_CUSTOM_ID_PREFIX  = "attendance-confirm:"
	BAIL_OUT_CUSTOM_ID_PREFIX = "attendance-bail:"
)

// SplitCustomID returns the prefix (including the colon) and the record id.
func SplitCustomID(customID string) (string, string, bool) {
	idx := strings.Index(customID, ":")
	if idx < 0 || idx == len(customID)-1 {
		return "", "", false
	}
	return customID[:idx+1], customID[idx+1:], true
}

// Log writes notifications to the structured log. It stands in for Discord
// when no bot token is configured.
type Log struct{}

func (Log) Notify(ctx context.Context, userID string, notificationType attendance.NotificationType, payload map[string]string) error {
	args := []any{"user_id", userID, "type", notificationType}
	for k, v := range payload {
		args = append(args, k, v)
	}
	slog.Info("notification", args...)
	return nil
}

// Dispatch sends one notification without blocking the caller. Failures are
// logged and dropped.
func Dispatch(
	notifier attendance.Notifier,
	timeout time.Duration,
	userID string,
	notificationType attendance.NotificationType,
	payload map[string]string,
) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := notifier.Notify(ctx, userID, notificationType, payload); err != nil {
			slog.Warn("can't send notification", "user_id", userID, "type", notificationType, "error", err)
		}
	}()
}

// DispatchOutcome tells a waitlisted user their position and every promoted
// user that they now have a confirmed slot.
func DispatchOutcome(notifier attendance.Notifier, timeout time.Duration, outcome *attendance.Outcome) {
	if outcome == nil {
		return
	}
	if outcome.Waitlisted() {
		Dispatch(notifier, timeout, outcome.Record.UserID, attendance.NOTIFICATION_WAITLISTED, map[string]string{
			"record_id": outcome.Record.ID,
			"event_id":  outcome.Record.EventID,
			"position":  strconv.Itoa(outcome.Position),
		})
	}
	DispatchPromoted(notifier, timeout, outcome.Promoted)
}

func DispatchPromoted(notifier attendance.Notifier, timeout time.Duration, promoted []*model.AttendanceRecord) {
	for _, record := range promoted {
		Dispatch(notifier, timeout, record.UserID, attendance.NOTIFICATION_PROMOTED, map[string]string{
			"record_id": record.ID,
			"event_id":  record.EventID,
		})
	}
}

// Message renders a notification as plain text.
func Message(notificationType attendance.NotificationType, eventTitle string, payload map[string]string) string {
	switch notificationType {
	case attendance.NOTIFICATION_WAITLISTED:
		return fmt.Sprintf("**%s** is full. You are number %s on the waitlist.", eventTitle, payload["position"])
	case attendance.NOTIFICATION_PROMOTED:
		return fmt.Sprintf("A spot opened up: you are now going to **%s**.", eventTitle)
	case attendance.NOTIFICATION_CONFIRMATION_REQUESTED:
		return fmt.Sprintf("**%s** is today. Are you still coming?", eventTitle)
	}
	return fmt.Sprintf("%s: %s", notificationType, eventTitle)
}
