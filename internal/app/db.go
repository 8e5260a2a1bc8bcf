package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

func sqlxConnect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("app: open postgres: %w", err)
	}
	return db, nil
}
