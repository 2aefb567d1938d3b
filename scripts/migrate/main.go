// Command migrate applies the database schema. Statements are idempotent so
// the tool can run on every deploy.
package main

import (
	"log"

	_ "github.com/lib/pq"

	"github.com/carebook/carebook-api/pkg/config"
	"github.com/carebook/carebook-api/pkg/database"
)

var statements = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name     TEXT NOT NULL,
		role          TEXT NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS patients (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		phone      TEXT,
		address    TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS doctors (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		hospital_id         TEXT NOT NULL DEFAULT '',
		specialization      TEXT NOT NULL DEFAULT '',
		experience_years    INTEGER NOT NULL DEFAULT 0,
		hourly_rate         DOUBLE PRECISION NOT NULL DEFAULT 0,
		registration_number TEXT NOT NULL DEFAULT '',
		verified            BOOLEAN NOT NULL DEFAULT FALSE,
		schedule            JSONB NOT NULL DEFAULT '[]'::jsonb,
		unavailability      JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS appointments (
		id         TEXT PRIMARY KEY,
		doctor_id  TEXT NOT NULL REFERENCES doctors(id),
		patient_id TEXT NOT NULL REFERENCES patients(id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time   TIMESTAMPTZ NOT NULL,
		fee        BIGINT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (end_time > start_time)
	)`,

	// Backstop for the serializable booking transaction: the database itself
	// refuses two active appointments with intersecting half-open intervals.
	`DO $$ BEGIN
		ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap
			EXCLUDE USING gist (
				doctor_id WITH =,
				tstzrange(start_time, end_time) WITH &&
			) WHERE (status IN ('pending', 'booked'));
	EXCEPTION WHEN duplicate_table OR duplicate_object THEN NULL;
	END $$`,

	`CREATE INDEX IF NOT EXISTS idx_appointments_doctor_start ON appointments (doctor_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_patient_start ON appointments (patient_id, start_time)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message    TEXT NOT NULL,
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("statement %d failed: %v", i+1, err)
		}
	}
	log.Printf("schema applied: %d statements", len(statements))
}
