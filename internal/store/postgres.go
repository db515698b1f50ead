package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/property"
)

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS properties (
            id          BIGSERIAL PRIMARY KEY,
            address     TEXT NOT NULL,
            lat         DOUBLE PRECISION NOT NULL,
            lon         DOUBLE PRECISION NOT NULL,
            attributes  JSONB NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_properties_address ON properties(lower(address));`,
		`CREATE TABLE IF NOT EXISTS amenities (
            id          BIGSERIAL PRIMARY KEY,
            category    TEXT NOT NULL,
            name        TEXT,
            lat         DOUBLE PRECISION NOT NULL,
            lon         DOUBLE PRECISION NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_amenities_category ON amenities(category, id);`,
		`CREATE TABLE IF NOT EXISTS scenario_runs (
            id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            session_id      TEXT NOT NULL,
            address         TEXT NOT NULL,
            request         JSONB NOT NULL,
            request_sha256  TEXT NOT NULL,
            what_if_value   DOUBLE PRECISION NOT NULL,
            attribution     JSONB NOT NULL,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_scenario_runs_address ON scenario_runs(lower(address), created_at DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// ImportProperties replaces the property table with props, keeping order.
func (s *Store) ImportProperties(ctx context.Context, props []property.Property) (err error) {
	if s.DB == nil {
		return errors.New("nil db")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `TRUNCATE properties`); err != nil {
		return err
	}
	for _, p := range props {
		var attrs []byte
		attrs, err = json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode %q: %w", p.Address, err)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO properties (address, lat, lon, attributes) VALUES ($1,$2,$3,$4)`,
			p.Address, p.Latitude, p.Longitude, string(attrs)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ImportAmenities replaces one category's rows.
func (s *Store) ImportAmenities(ctx context.Context, c amenity.Category, list []amenity.Amenity) (err error) {
	if s.DB == nil {
		return errors.New("nil db")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM amenities WHERE category=$1`, c.Key()); err != nil {
		return err
	}
	for _, a := range list {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO amenities (category, name, lat, lon) VALUES ($1,$2,$3,$4)`,
			c.Key(), sqlNullString(a.Name), a.Lat, a.Lon); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadProperties(ctx context.Context) ([]property.Property, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT attributes FROM properties ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []property.Property
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var p property.Property
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode property row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) LoadAmenities(ctx context.Context, c amenity.Category) ([]amenity.Amenity, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, lat, lon FROM amenities WHERE category=$1 ORDER BY id`, c.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []amenity.Amenity{}
	for rows.Next() {
		var (
			name sql.NullString
			a    amenity.Amenity
		)
		if err := rows.Scan(&name, &a.Lat, &a.Lon); err != nil {
			return nil, err
		}
		a.Name = name.String
		out = append(out, a)
	}
	return out, rows.Err()
}

type ScenarioRun struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"-"`
	Address     string          `json:"address"`
	Request     json.RawMessage `json:"request"`
	WhatIfValue float64         `json:"what_if_value"`
	Attribution json.RawMessage `json:"attribution"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (s *Store) RecordScenario(ctx context.Context, run ScenarioRun) error {
	if s.DB == nil {
		return errors.New("nil db")
	}
	sum := sha256.Sum256(run.Request)
	sha := hex.EncodeToString(sum[:])
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO scenario_runs (id, session_id, address, request, request_sha256, what_if_value, attribution)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, run.ID, run.SessionID, run.Address, string(run.Request), sha, run.WhatIfValue, string(run.Attribution))
	return err
}

// RecentScenarios lists the latest runs for an address, newest first.
func (s *Store) RecentScenarios(ctx context.Context, address string, limit int) ([]ScenarioRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, address, request, what_if_value, attribution, created_at
        FROM scenario_runs WHERE lower(address) = lower($1)
        ORDER BY created_at DESC LIMIT $2`, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ScenarioRun{}
	for rows.Next() {
		var r ScenarioRun
		var req, attr []byte
		if err := rows.Scan(&r.ID, &r.Address, &req, &r.WhatIfValue, &attr, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Request = req
		r.Attribution = attr
		out = append(out, r)
	}
	return out, rows.Err()
}

func sqlNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
