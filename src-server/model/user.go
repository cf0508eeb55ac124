package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// User is keyed by the Discord user id.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       string `bun:"id,pk,notnull,unique"`
	Username string `bun:"username,notnull"`
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	if u.ID == "" {
		return fmt.Errorf("user id is empty")
	}

	_, err := db.
		NewInsert().
		Model(u).
		On("CONFLICT (id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Exec(ctx)

	return err
}
