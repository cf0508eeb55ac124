package attendance_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/event"
	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

// newTestInstances opens the same database file once per engine, the way
// separate processes would share it. The returned handle is the first one.
func newTestInstances(t *testing.T, instances int, opts ...attendance.Option) ([]*attendance.Engine, *bun.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	var first *bun.DB
	engines := make([]*attendance.Engine, 0, instances)
	for i := range instances {
		_, bundb, err := model.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { bundb.Close() })
		if i == 0 {
			if err := model.CreateSchema(context.Background(), bundb); err != nil {
				t.Fatal(err)
			}
			first = bundb
		}

		provider := event.NewProvider(bundb)
		engines = append(engines, attendance.NewEngine(bundb, provider, append([]attendance.Option{
			attendance.WithUserProvider(provider),
			attendance.WithLocation(time.UTC),
			attendance.WithClock(func() time.Time { return testNow }),
		}, opts...)...))
	}
	return engines, first
}

func TestConcurrentVacanciesAcrossInstances(t *testing.T) {
	engines, bundb := newTestInstances(t, 3)
	ctx := context.Background()
	addEvent(t, bundb, "e1", 3, false, testNow.Add(48*time.Hour))

	userIDs := make([]string, 0, 20)
	for i := range 20 {
		userIDs = append(userIDs, fmt.Sprintf("u%02d", i))
	}
	addUsers(t, bundb, userIDs...)

	// u00..u02 going, u03..u09 waitlisted at 1..7
	records := make(map[string]*model.AttendanceRecord)
	for _, userID := range userIDs[:10] {
		records[userID] = mustRsvp(t, engines[0], "e1", userID, model.ATTENDANCE_STATUS_GOING).Record
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		promoted []*model.AttendanceRecord
	)
	calls := 0
	run := func(fn func(engine *attendance.Engine) ([]*model.AttendanceRecord, error)) {
		engine := engines[calls%len(engines)]
		calls++
		wg.Add(1)
		go func() {
			defer wg.Done()
			moved, err := fn(engine)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			promoted = append(promoted, moved...)
		}()
	}

	for _, userID := range []string{"u00", "u01"} {
		run(func(engine *attendance.Engine) ([]*model.AttendanceRecord, error) {
			result, err := engine.BailOut(ctx, records[userID].ID, userID, "")
			if err != nil {
				return nil, fmt.Errorf("bail out %s: %w", userID, err)
			}
			return result.Promoted, nil
		})
	}
	for _, userID := range []string{"u02", "u04", "u06", "u08"} {
		run(func(engine *attendance.Engine) ([]*model.AttendanceRecord, error) {
			result, err := engine.CancelRsvp(ctx, "e1", userID)
			if err != nil {
				return nil, fmt.Errorf("cancel %s: %w", userID, err)
			}
			return result.Promoted, nil
		})
	}
	for _, userID := range userIDs[10:19] {
		run(func(engine *attendance.Engine) ([]*model.AttendanceRecord, error) {
			outcome, err := engine.ApplyRsvp(ctx, "e1", userID, model.ATTENDANCE_STATUS_GOING, "")
			if err != nil {
				return nil, fmt.Errorf("rsvp %s: %w", userID, err)
			}
			return outcome.Promoted, nil
		})
	}
	wg.Wait()

	for _, err := range errs {
		t.Error(err)
	}

	// case: no record is promoted twice
	func() {
		seen := make(map[string]bool)
		for _, record := range promoted {
			if seen[record.ID] {
				t.Errorf("%s promoted twice", record.UserID)
			}
			seen[record.ID] = true
		}
		if len(promoted) < 3 {
			t.Errorf("expected at least 3 promotions for 3 vacated slots, got %d", len(promoted))
		}
	}()

	roster, err := engines[1].EventRoster(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}

	// case: the event is full while anyone waits, and only from the old waitlist
	func() {
		if len(roster.Going) != 3 {
			t.Errorf("expected 3 going, got %d", len(roster.Going))
		}
		if len(roster.Going)+len(roster.Waitlist) != 13 {
			t.Errorf("expected 13 going or waitlisted, got %d + %d", len(roster.Going), len(roster.Waitlist))
		}
		for _, record := range roster.Going {
			if !strings.HasPrefix(record.UserID, "u0") {
				t.Errorf("%s jumped the waitlist", record.UserID)
			}
		}
	}()

	// case: the waitlist is dense and keeps arrival order
	func() {
		order := waitlistOrder(t, engines[2], "e1")
		seenNew, previous := false, ""
		for _, userID := range order {
			if !strings.HasPrefix(userID, "u0") {
				seenNew = true
				continue
			}
			if seenNew || userID < previous {
				t.Errorf("waitlist order broken: %v", order)
				break
			}
			previous = userID
		}
	}()
}

func TestConcurrentSweepsAcrossInstances(t *testing.T) {
	notifier := new(fakeNotifier)
	engines, bundb := newTestInstances(t, 4, attendance.WithNotifier(notifier))
	ctx := context.Background()
	addEvent(t, bundb, "today", 0, false, testNow.Add(10*time.Hour))

	userIDs := make([]string, 0, 30)
	for i := range 30 {
		userIDs = append(userIDs, fmt.Sprintf("u%02d", i))
	}
	addUsers(t, bundb, userIDs...)
	for _, userID := range userIDs {
		mustRsvp(t, engines[0], "today", userID, model.ATTENDANCE_STATUS_GOING)
	}

	var wg sync.WaitGroup
	results := make([]*attendance.SweepResult, len(engines))
	errs := make([]error, len(engines))
	for i, engine := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = engine.RunConfirmationSweep(ctx)
		}()
	}
	wg.Wait()

	sent := 0
	for i, result := range results {
		if errs[i] != nil {
			t.Fatalf("sweep %d: %v", i, errs[i])
		}
		if result.Failed != 0 {
			t.Errorf("sweep %d failed %d prompts", i, result.Failed)
		}
		sent += result.Sent
	}
	if sent != len(userIDs) {
		t.Errorf("expected %d prompts in total, got %d", len(userIDs), sent)
	}

	prompted := make(map[string]int)
	for _, userID := range notifier.sentTo() {
		prompted[userID]++
	}
	for _, userID := range userIDs {
		if prompted[userID] != 1 {
			t.Errorf("%s got %d prompts", userID, prompted[userID])
		}
		if record := getRecord(t, engines[3], "today", userID); record.ConfirmationSentAtUnixUTC != testNow.Unix() {
			t.Errorf("%s has no recorded prompt: %+v", userID, record)
		}
	}

	// a later sweep from any instance has nothing left to send
	result, err := engines[2].RunConfirmationSweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 0 {
		t.Errorf("records swept again: %+v", result)
	}
}
