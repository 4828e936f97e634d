package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// ensureUser inserts a user row with defaults if none exists. Plants and
// subscriptions reference users, so writers call this first.
func (r *SQLiteRepo) ensureUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, notifications_enabled, created_at)
		VALUES (?, 0, ?)
		ON CONFLICT(id) DO NOTHING`,
		userID, time.Now().UTC().Unix(),
	)
	return err
}

// GetPreference returns the user's notification opt-in, or ErrNotFound
// when no row exists for the user.
func (r *SQLiteRepo) GetPreference(ctx context.Context, userID string) (bool, error) {
	var enabled int
	err := r.db.QueryRowContext(ctx, `
		SELECT notifications_enabled FROM users WHERE id = ?`,
		userID,
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return enabled != 0, nil
}

// UpsertPreference inserts or updates the user's notification opt-in.
func (r *SQLiteRepo) UpsertPreference(ctx context.Context, userID string, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, notifications_enabled, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notifications_enabled = excluded.notifications_enabled`,
		userID, boolToInt(enabled), time.Now().UTC().Unix(),
	)
	return err
}

// ListPlants returns all of a user's plants with their watering history,
// newest plants first. History is ordered most-recent-first.
func (r *SQLiteRepo) ListPlants(ctx context.Context, userID string) ([]domain.Plant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, species, location, watering_frequency_days,
		       last_watered_at, created_at
		FROM plants
		WHERE user_id = ?
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plants []domain.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range plants {
		history, err := r.wateringHistory(ctx, plants[i].ID)
		if err != nil {
			return nil, err
		}
		plants[i].WateringHistory = history
	}
	return plants, nil
}

// GetPlant returns a single plant with its watering history.
func (r *SQLiteRepo) GetPlant(ctx context.Context, plantID string) (*domain.Plant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, species, location, watering_frequency_days,
		       last_watered_at, created_at
		FROM plants
		WHERE id = ?`,
		plantID,
	)
	p, err := scanPlant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	history, err := r.wateringHistory(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.WateringHistory = history
	return p, nil
}

// CreatePlant inserts a new plant for the user.
func (r *SQLiteRepo) CreatePlant(ctx context.Context, userID string, p *domain.Plant) error {
	if p == nil {
		return errors.New("nil plant")
	}
	if err := r.ensureUser(ctx, userID); err != nil {
		return err
	}
	created := p.CreatedAt.UTC().Unix()
	if p.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plants (
			id, user_id, name, species, location,
			watering_frequency_days, last_watered_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, userID, p.Name, p.Species, p.Location,
		p.WateringFrequencyDays, unixOrNull(p.LastWateredAt), created,
	)
	return err
}

// UpdatePlant updates a plant's editable fields.
func (r *SQLiteRepo) UpdatePlant(ctx context.Context, p *domain.Plant) error {
	if p == nil {
		return errors.New("nil plant")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE plants
		SET name = ?, species = ?, location = ?,
		    watering_frequency_days = ?, last_watered_at = ?
		WHERE id = ?`,
		p.Name, p.Species, p.Location,
		p.WateringFrequencyDays, unixOrNull(p.LastWateredAt), p.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlant removes a plant; its watering history cascades.
func (r *SQLiteRepo) DeletePlant(ctx context.Context, plantID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plants WHERE id = ?`, plantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddWatering records a watering event and refreshes the plant's
// denormalized last_watered_at.
func (r *SQLiteRepo) AddWatering(ctx context.Context, plantID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watering_history (plant_id, watered_at)
		VALUES (?, ?)
		ON CONFLICT(plant_id, watered_at) DO NOTHING`,
		plantID, at.UTC().Unix(),
	)
	if err != nil {
		return err
	}
	return r.refreshLastWatered(ctx, plantID)
}

// RemoveWatering deletes a watering event.
func (r *SQLiteRepo) RemoveWatering(ctx context.Context, plantID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM watering_history WHERE plant_id = ? AND watered_at = ?`,
		plantID, at.UTC().Unix(),
	)
	if err != nil {
		return err
	}
	return r.refreshLastWatered(ctx, plantID)
}

func (r *SQLiteRepo) refreshLastWatered(ctx context.Context, plantID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE plants
		SET last_watered_at = (
			SELECT MAX(watered_at) FROM watering_history WHERE plant_id = ?
		)
		WHERE id = ?`,
		plantID, plantID,
	)
	return err
}

// GetSubscription returns the user's push subscription, or nil when absent.
func (r *SQLiteRepo) GetSubscription(ctx context.Context, userID string) (*domain.PushSubscription, error) {
	var sub domain.PushSubscription
	err := r.db.QueryRowContext(ctx, `
		SELECT endpoint, p256dh, auth FROM push_subscriptions WHERE user_id = ?`,
		userID,
	).Scan(&sub.Endpoint, &sub.P256dh, &sub.Auth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveSubscription stores (or replaces) the user's push subscription.
func (r *SQLiteRepo) SaveSubscription(ctx context.Context, userID string, sub domain.PushSubscription) error {
	if err := r.ensureUser(ctx, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			endpoint = excluded.endpoint,
			p256dh   = excluded.p256dh,
			auth     = excluded.auth`,
		userID, sub.Endpoint, sub.P256dh, sub.Auth, time.Now().UTC().Unix(),
	)
	return err
}

// wateringHistory returns a plant's watering timestamps, most recent first.
func (r *SQLiteRepo) wateringHistory(ctx context.Context, plantID string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT watered_at FROM watering_history
		WHERE plant_id = ?
		ORDER BY watered_at DESC`,
		plantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []time.Time
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		history = append(history, time.Unix(ts, 0).UTC())
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (*domain.Plant, error) {
	var (
		p       domain.Plant
		lastNS  sql.NullInt64
		created int64
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Species, &p.Location,
		&p.WateringFrequencyDays, &lastNS, &created,
	); err != nil {
		return nil, err
	}
	p.LastWateredAt = timeFromNull(lastNS)
	p.CreatedAt = time.Unix(created, 0).UTC()
	return &p, nil
}
