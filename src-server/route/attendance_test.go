package route_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/event"
	"rsvpd/src-server/model"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/route"
	"rsvpd/src-server/utils"
)

func newTestServer(t *testing.T) (*httptest.Server, *utils.AppState) {
	t.Helper()
	rawDB, bundb, err := model.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bundb.Close() })
	if err := model.CreateSchema(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}

	as := &utils.AppState{
		Config:      utils.NewConfig(),
		RawDB:       rawDB,
		BunDB:       bundb,
		MetricChans: utils.NewMetric(),
		Events:      event.NewProvider(bundb),
		Notifier:    notify.Log{},
	}
	as.Engine = attendance.NewEngine(bundb, as.Events,
		attendance.WithUserProvider(as.Events),
		attendance.WithNotifier(as.Notifier),
		attendance.WithLocation(time.UTC),
	)

	muxer := http.NewServeMux()
	route.Attendance(muxer, as)
	server := httptest.NewServer(muxer)
	t.Cleanup(server.Close)
	return server, as
}

// login creates a user with a session and returns the session secret.
func login(t *testing.T, as *utils.AppState, userID string, createdAt time.Time) string {
	t.Helper()
	ctx := context.Background()
	if err := (&model.User{ID: userID, Username: userID}).Upsert(ctx, as.BunDB); err != nil {
		t.Fatal(err)
	}
	secret := "secret-" + userID
	if _, err := as.BunDB.NewInsert().Model(&model.Session{
		Secret:           secret,
		Purpose:          model.SESSION_MODEL_PURPOSE_SESSION,
		UserID:           userID,
		CreatedAtUnixUTC: createdAt.Unix(),
	}).Exec(ctx); err != nil {
		t.Fatal(err)
	}
	return secret
}

func do(t *testing.T, server *httptest.Server, method, path, secret string, body any) (int, map[string]any) {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &reqBody)
	if err != nil {
		t.Fatal(err)
	}
	if secret != "" {
		req.AddCookie(&http.Cookie{Name: model.SESSION_COOKIE_NAME, Value: secret})
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	respBody := make(map[string]any)
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode, respBody
}

func TestAttendanceRoutes(t *testing.T) {
	server, as := newTestServer(t)
	ctx := context.Background()

	if err := (&model.Event{
		ID:               "e1",
		Title:            "Quiz",
		Capacity:         1,
		StartDateUnixUTC: time.Now().Add(48 * time.Hour).Unix(),
		EndDateUnixUTC:   time.Now().Add(50 * time.Hour).Unix(),
	}).Upsert(ctx, as.BunDB); err != nil {
		t.Fatal(err)
	}
	alice := login(t, as, "alice", time.Now())
	bob := login(t, as, "bob", time.Now())
	carol := login(t, as, "carol", time.Now())
	expired := login(t, as, "dave", time.Now().Add(-8*24*time.Hour))

	// case: authentication
	func() {
		if code, _ := do(t, server, http.MethodPost, "/attendance/rsvp", "", nil); code != http.StatusUnauthorized {
			t.Errorf("no cookie: expected 401, got %d", code)
		}
		if code, _ := do(t, server, http.MethodPost, "/attendance/rsvp", "wrong", nil); code != http.StatusUnauthorized {
			t.Errorf("unknown secret: expected 401, got %d", code)
		}
		if code, _ := do(t, server, http.MethodPost, "/attendance/rsvp", expired, nil); code != http.StatusUnauthorized {
			t.Errorf("expired session: expected 401, got %d", code)
		}
		exists, err := as.BunDB.NewSelect().Model((*model.Session)(nil)).Where("secret = ?", expired).Exists(ctx)
		if err != nil || exists {
			t.Errorf("expired session should be deleted: %v %v", exists, err)
		}
	}()

	code, body := do(t, server, http.MethodPost, "/attendance/rsvp", alice, map[string]string{"eventId": "e1", "status": "going"})
	if code != http.StatusOK || body["outcome"] != "confirmed" {
		t.Fatalf("alice: %d %v", code, body)
	}
	aliceRecordID := body["recordId"].(string)

	code, body = do(t, server, http.MethodPost, "/attendance/rsvp", bob, map[string]string{"eventId": "e1", "status": "going"})
	if code != http.StatusOK || body["outcome"] != "waitlisted" || body["position"] != float64(1) {
		t.Fatalf("bob: %d %v", code, body)
	}

	// case: status codes of each error kind
	func() {
		for name, tc := range map[string]struct {
			path   string
			secret string
			body   any
			want   int
		}{
			"validation":    {"/attendance/rsvp", carol, map[string]string{"eventId": "e1", "status": "waitlisted"}, http.StatusBadRequest},
			"bad json":      {"/attendance/rsvp", carol, "not an object", http.StatusBadRequest},
			"not found":     {"/attendance/rsvp", carol, map[string]string{"eventId": "nope", "status": "going"}, http.StatusNotFound},
			"authorization": {"/attendance/confirm", bob, map[string]string{"recordId": aliceRecordID}, http.StatusForbidden},
			"missing":       {"/attendance/bail-out", alice, map[string]string{"recordId": "nope"}, http.StatusNotFound},
		} {
			t.Run(name, func(t *testing.T) {
				if code, _ := do(t, server, http.MethodPost, tc.path, tc.secret, tc.body); code != tc.want {
					t.Errorf("expected %d, got %d", tc.want, code)
				}
			})
		}
	}()

	code, body = do(t, server, http.MethodGet, "/attendance/events/e1", carol, nil)
	if code != http.StatusOK || body["capacity"] != float64(1) {
		t.Fatalf("roster: %d %v", code, body)
	}
	if going := body["going"].([]any); len(going) != 1 {
		t.Errorf("expected 1 going, got %v", going)
	}
	if waitlist := body["waitlist"].([]any); len(waitlist) != 1 {
		t.Errorf("expected 1 waitlisted, got %v", waitlist)
	}

	code, body = do(t, server, http.MethodPost, "/attendance/confirm", alice, map[string]string{"recordId": aliceRecordID})
	if code != http.StatusOK || body["confirmed"] != true {
		t.Fatalf("confirm: %d %v", code, body)
	}

	code, body = do(t, server, http.MethodPost, "/attendance/bail-out", alice, map[string]string{"recordId": aliceRecordID, "reason": "flu"})
	if code != http.StatusOK || body["bailedOut"] != true {
		t.Fatalf("bail out: %d %v", code, body)
	}
	if promoted := body["promoted"].([]any); len(promoted) != 1 {
		t.Errorf("expected bob to be promoted, got %v", promoted)
	}

	// a bailed-out record can't be confirmed any more
	if code, _ := do(t, server, http.MethodPost, "/attendance/confirm", alice, map[string]string{"recordId": aliceRecordID}); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}

	code, body = do(t, server, http.MethodPost, "/attendance/cancel", bob, map[string]string{"eventId": "e1"})
	if code != http.StatusOK || body["cancelled"] != true {
		t.Fatalf("cancel: %d %v", code, body)
	}

	code, body = do(t, server, http.MethodPost, "/attendance/sweep", alice, nil)
	if code != http.StatusOK || body["processed"] != float64(0) {
		t.Errorf("sweep: %d %v", code, body)
	}
}

func TestStatusCode(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{attendance.ErrValidation, http.StatusBadRequest},
		{attendance.ErrAuthorization, http.StatusForbidden},
		{attendance.ErrInvalidState, http.StatusConflict},
		{attendance.ErrNotFound, http.StatusNotFound},
		{attendance.ErrStore, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", attendance.ErrNotFound), http.StatusNotFound},
	} {
		if got := route.StatusCode(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
