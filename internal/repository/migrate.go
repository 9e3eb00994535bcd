package repository

import (
	"context"
	"fmt"
)

// Схема создаётся идемпотентно при старте процесса: таблицы небольшие,
// выносить их в отдельный инструмент миграций смысла нет.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id           BIGSERIAL PRIMARY KEY,
		short_code   TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		user_id      BIGINT NOT NULL REFERENCES users(id),
		clicks       BIGINT NOT NULL DEFAULT 0 CHECK (clicks >= 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clicks (
		id          BIGSERIAL PRIMARY KEY,
		link_id     BIGINT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
		clicked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ip_address  TEXT NOT NULL DEFAULT '',
		user_agent  TEXT NOT NULL DEFAULT '',
		referer     TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT '',
		browser     TEXT NOT NULL DEFAULT '',
		os          TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_link_clicked_at ON clicks (link_id, clicked_at)`,
}

// Migrate применяет схему к базе. Вызывается из main до запуска сервера
// и из интеграционных тестов после поднятия контейнера.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
