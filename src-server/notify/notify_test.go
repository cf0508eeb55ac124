package notify_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/model"
	"rsvpd/src-server/notify"
)

func TestSplitCustomID(t *testing.T) {
	for customID, want := range map[string]struct {
		prefix   string
		recordID string
		ok       bool
	}{
		"attendance-confirm:abc": {notify.CONFIRM_CUSTOM_ID_PREFIX, "abc", true},
		"attendance-bail:a:b":    {notify.BAIL_OUT_CUSTOM_ID_PREFIX, "a:b", true},
		"attendance-bail:":       {"", "", false},
		"no-colon":               {"", "", false},
	} {
		prefix, recordID, ok := notify.SplitCustomID(customID)
		if prefix != want.prefix || recordID != want.recordID || ok != want.ok {
			t.Errorf("%q: got (%q, %q, %v)", customID, prefix, recordID, ok)
		}
	}
}

func TestMessage(t *testing.T) {
	msg := notify.Message(attendance.NOTIFICATION_WAITLISTED, "Quiz", map[string]string{"position": "3"})
	if !strings.Contains(msg, "Quiz") || !strings.Contains(msg, "3") {
		t.Errorf("unexpected message %q", msg)
	}
	msg = notify.Message(attendance.NOTIFICATION_CONFIRMATION_REQUESTED, "Quiz", nil)
	if !strings.Contains(msg, "today") {
		t.Errorf("unexpected message %q", msg)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	wg   sync.WaitGroup
	sent map[string]attendance.NotificationType
}

func (n *recordingNotifier) Notify(ctx context.Context, userID string, notificationType attendance.NotificationType, payload map[string]string) error {
	defer n.wg.Done()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = notificationType
	return nil
}

func TestDispatchOutcome(t *testing.T) {
	notifier := &recordingNotifier{sent: make(map[string]attendance.NotificationType)}
	notifier.wg.Add(2)

	notify.DispatchOutcome(notifier, time.Second, &attendance.Outcome{
		Kind:     attendance.OUTCOME_WAITLISTED,
		Position: 1,
		Record:   &model.AttendanceRecord{ID: "r1", EventID: "e1", UserID: "waiting"},
		Promoted: []*model.AttendanceRecord{{ID: "r2", EventID: "e1", UserID: "promoted"}},
	})
	notifier.wg.Wait()

	if notifier.sent["waiting"] != attendance.NOTIFICATION_WAITLISTED {
		t.Errorf("waitlisted user got %q", notifier.sent["waiting"])
	}
	if notifier.sent["promoted"] != attendance.NOTIFICATION_PROMOTED {
		t.Errorf("promoted user got %q", notifier.sent["promoted"])
	}
}
