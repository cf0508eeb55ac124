package model

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DSN builds the sqlite connection string. Every transaction starts with
// BEGIN IMMEDIATE so a transaction holds the write lock before its first
// read; both drivers behind sqliteshim understand _txlock.
func DSN(path string) string {
	params := url.Values{}
	params.Set("mode", "rwc")
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", "10000")
	params.Set("_journal_mode", "WAL")
	params.Add("_pragma", "busy_timeout(10000)")
	params.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + params.Encode()
}

// Open returns the raw handle and the bun handle over it.
func Open(path string) (*sql.DB, *bun.DB, error) {
	rawDB, err := sql.Open(sqliteshim.ShimName, DSN(path))
	if err != nil {
		return nil, nil, fmt.Errorf("Open: %w", err)
	}
	if err := rawDB.Ping(); err != nil {
		rawDB.Close()
		return nil, nil, fmt.Errorf("Open: %w", err)
	}
	return rawDB, bun.NewDB(rawDB, sqlitedialect.New()), nil
}
