package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Open connects to the configured driver and makes sure the schema exists.
func Open(driver, dsn string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case "sqlite3", "sqlite":
		db, err = InitSQLite(dsn)
	case "postgres", "postgresql":
		db, err = InitPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	logrus.WithField("driver", db.DriverName()).Info("database initialized")
	return db, nil
}

func createSchema(db *sqlx.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
