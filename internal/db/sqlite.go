package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		is_superuser BOOLEAN NOT NULL DEFAULT 0,
		confirmation_code TEXT,
		confirmed_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS titles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_titles_year ON titles(year);`,
	`CREATE TABLE IF NOT EXISTS genre_title (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
		UNIQUE (genre_id, title_id)
	);`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
		author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 10),
		pub_date DATETIME NOT NULL,
		CONSTRAINT unique_title_author UNIQUE (title_id, author_id)
	);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		pub_date DATETIME NOT NULL
	);`,
}

// InitSQLite opens the database file at path with foreign keys enforced and
// creates the schema.
func InitSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("DB connection error: %w", err)
	}
	if err := createSchema(db, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// sqliteDSN turns on the pragmas every connection in the pool needs.
func sqliteDSN(path string) string {
	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	var missing []string
	for _, p := range params {
		if !strings.Contains(path, strings.SplitN(p, "=", 2)[0]+"=") {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + strings.Join(missing, "&")
}
