// Package back owns everything that outlives a duel: player identities and
// their persistent Glicko-2 ratings.
package back

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Back struct {
	db *sqlx.DB

	notifications chan Notification
}

func New(sqlDriver string, sqlDSN string) (*Back, error) {
	// Column names match struct field names verbatim, a single greppable
	// string beats any conversion scheme.
	// HACK: global, but only the Back touches the DB.
	sqlx.NameMapper = func(v string) string { return v }

	db, err := sqlx.Connect(sqlDriver, sqlDSN)
	if err != nil {
		return nil, err
	}

	return &Back{
		db:            db,
		notifications: make(chan Notification, 32),
	}, nil
}

type transactionCallback func(*sqlx.Tx) error

func (b *Back) transaction(cb transactionCallback) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %s", err2, err)
		}

		return err
	}

	return tx.Commit()
}
