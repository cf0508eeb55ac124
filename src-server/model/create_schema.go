package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

func CreateSchema(ctx context.Context, db *bun.DB) error {
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{
			(*Event)(nil),
			(*AttendanceRecord)(nil),
			(*User)(nil),
			(*Session)(nil),
		} {
			if _, err := tx.
				NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
		}

		// at most one record per (event, user); also the upsert target
		if _, err := tx.NewCreateIndex().
			Model((*AttendanceRecord)(nil)).
			Index("attendance_records_event_user_idx").
			Unique().
			IfNotExists().
			Column("event_id", "user_id").
			Exec(ctx); err != nil {
			return err
		}

		// no two waitlisted records of one event share a position
		if _, err := tx.NewCreateIndex().
			Model((*AttendanceRecord)(nil)).
			Index("attendance_records_waitlist_idx").
			Unique().
			IfNotExists().
			Column("event_id", "waitlist_position").
			Where("status = ?", ATTENDANCE_STATUS_WAITLISTED).
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewCreateIndex().
			Model((*AttendanceRecord)(nil)).
			Index("attendance_records_event_status_idx").
			IfNotExists().
			Column("event_id", "status").
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewCreateIndex().
			Model((*Event)(nil)).
			Index("events_start_date_idx").
			IfNotExists().
			Column("start_date").
			Exec(ctx); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return fmt.Errorf("CreateSchema: %w", err)
	}

	return nil
}
