package event_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rsvpd/src-server/event"
	"rsvpd/src-server/model"
)

func TestProvider(t *testing.T) {
	_, bundb, err := model.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer bundb.Close()
	ctx := context.Background()
	if err := model.CreateSchema(ctx, bundb); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	for _, eventModel := range []model.Event{
		{ID: "morning", Title: "Run club", Capacity: 10, ChannelID: "42", StartDateUnixUTC: day.Add(7 * time.Hour).Unix()},
		{ID: "evening", Title: "Quiz", DualMode: true, StartDateUnixUTC: day.Add(19 * time.Hour).Unix()},
		{ID: "next", Title: "Brunch", StartDateUnixUTC: day.Add(34 * time.Hour).Unix()},
	} {
		eventModel.EndDateUnixUTC = eventModel.StartDateUnixUTC + 3600
		if err := eventModel.Upsert(ctx, bundb); err != nil {
			t.Fatal(err)
		}
	}
	if err := (&model.User{ID: "u1", Username: "alice"}).Upsert(ctx, bundb); err != nil {
		t.Fatal(err)
	}

	provider := event.NewProvider(bundb)

	// case: existence
	func() {
		exists, err := provider.EventExists(ctx, "morning")
		if err != nil || !exists {
			t.Errorf("morning should exist: %v %v", exists, err)
		}
		exists, err = provider.EventExists(ctx, "nope")
		if err != nil || exists {
			t.Errorf("nope should not exist: %v %v", exists, err)
		}
		exists, err = provider.UserExists(ctx, "u1")
		if err != nil || !exists {
			t.Errorf("u1 should exist: %v %v", exists, err)
		}
	}()

	// case: capacity & modes
	func() {
		capacity, limited, err := provider.GetCapacity(ctx, "morning")
		if err != nil || !limited || capacity != 10 {
			t.Errorf("morning: capacity %d limited %v err %v", capacity, limited, err)
		}
		_, limited, err = provider.GetCapacity(ctx, "evening")
		if err != nil || limited {
			t.Errorf("evening should be unlimited: %v %v", limited, err)
		}
		dualMode, err := provider.SupportsDualMode(ctx, "evening")
		if err != nil || !dualMode {
			t.Errorf("evening should be dual mode: %v %v", dualMode, err)
		}
		if _, _, err := provider.GetCapacity(ctx, "nope"); err == nil {
			t.Error("expected an error for an unknown event")
		}
	}()

	// case: start window is [from, to)
	func() {
		eventIDs, err := provider.EventsStartingBetween(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			t.Fatal(err)
		}
		if len(eventIDs) != 2 || eventIDs[0] != "morning" || eventIDs[1] != "evening" {
			t.Errorf("unexpected events %v", eventIDs)
		}
		eventIDs, err = provider.EventsStartingBetween(ctx, day.Add(7*time.Hour+time.Second), day.Add(19*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(eventIDs) != 0 {
			t.Errorf("unexpected events %v", eventIDs)
		}
	}()

	if title := provider.Title(ctx, "evening"); title != "Quiz" {
		t.Errorf("unexpected title %q", title)
	}
	if title := provider.Title(ctx, "nope"); title != "nope" {
		t.Errorf("unknown event should fall back to its id, got %q", title)
	}

	// case: channel mention
	func() {
		if mention := provider.ChannelMention(ctx, "morning"); mention != "<#42>" {
			t.Errorf("unexpected mention %q", mention)
		}
		if mention := provider.ChannelMention(ctx, "evening"); mention != "" {
			t.Errorf("event without a channel got %q", mention)
		}
		if mention := provider.ChannelMention(ctx, "nope"); mention != "" {
			t.Errorf("unknown event got %q", mention)
		}
	}()
}
