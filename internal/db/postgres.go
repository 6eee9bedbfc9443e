package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL CONSTRAINT users_username_key UNIQUE,
		email VARCHAR(254) NOT NULL CONSTRAINT users_email_key UNIQUE,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		confirmation_code TEXT,
		confirmed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		slug VARCHAR(50) NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS genres (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		slug VARCHAR(50) NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS titles (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		year INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_titles_year ON titles(year);`,
	`CREATE TABLE IF NOT EXISTS genre_title (
		id BIGSERIAL PRIMARY KEY,
		genre_id BIGINT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
		UNIQUE (genre_id, title_id)
	);`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
		author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		score SMALLINT NOT NULL CHECK (score BETWEEN 0 AND 10),
		pub_date TIMESTAMPTZ NOT NULL,
		CONSTRAINT unique_title_author UNIQUE (title_id, author_id)
	);`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		review_id BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		pub_date TIMESTAMPTZ NOT NULL
	);`,
}

func InitPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := createSchema(db, postgresSchema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
