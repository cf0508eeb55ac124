package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Event mirrors the scheduling metadata owned by the event service. This
// service only reads it.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID    string `bun:"id,pk"`         // required
	Title string `bun:"title,notnull"` // required

	// 0 is stored as NULL and means unlimited
	Capacity int  `bun:"capacity,nullzero"`
	DualMode bool `bun:"dual_mode,notnull,default:false"`

	StartDateUnixUTC int64 `bun:"start_date,notnull"` // required
	EndDateUnixUTC   int64 `bun:"end_date,notnull"`   // required

	ChannelID string `bun:"channel_id"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
}

// HasCapacity reports whether the event is capacity-limited.
func (e *Event) HasCapacity() bool {
	return e.Capacity > 0
}

func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("(*Event).Upsert: event id is blank")
	case e.Title == "":
		return fmt.Errorf("(*Event).Upsert: title is blank")
	case e.Capacity < 0:
		return fmt.Errorf("(*Event).Upsert: capacity must be positive or unset")
	case e.StartDateUnixUTC == 0:
		return fmt.Errorf("(*Event).Upsert: start date is blank")
	case e.EndDateUnixUTC == 0:
		return fmt.Errorf("(*Event).Upsert: end date is blank")
	case e.StartDateUnixUTC > e.EndDateUnixUTC:
		return fmt.Errorf("(*Event).Upsert: start date must be before end date")
	}
	now := time.Now().UTC().Unix()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	if _, err := db.NewInsert().
		Model(e).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("capacity = EXCLUDED.capacity").
		Set("dual_mode = EXCLUDED.dual_mode").
		Set("start_date = EXCLUDED.start_date").
		Set("end_date = EXCLUDED.end_date").
		Set("channel_id = EXCLUDED.channel_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}

	return nil
}
