package main

import (
	"errors"
	"log"

	"hailstone/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func migrateDatabase(conf *config.Config) error {
	migrator, err := migrate.New(
		"file://resources/migrations",
		"sqlite3://"+conf.DatabasePath,
	)
	if err != nil {
		return err
	}
	defer func() {
		if sourceErr, dbErr := migrator.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("warning: unable to close migrator: %s / %s", sourceErr, dbErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Print("info: database already up to date")
			return nil
		}

		return err
	}

	log.Print("info: database migrated")

	return nil
}
