package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mineralclassifier/internal/models"
)

// LoadEventRepository implements repository.LoadEventRepository for SQLite.
type LoadEventRepository struct {
	db *DB
}

// NewLoadEventRepository creates a new SQLite load event repository.
func NewLoadEventRepository(db *DB) *LoadEventRepository {
	return &LoadEventRepository{db: db}
}

// Insert adds a load event. Missing ids and timestamps are filled in.
func (r *LoadEventRepository) Insert(ev *models.LoadEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	return r.db.write(func(conn *sql.DB) error {
		_, err := conn.Exec(`
			INSERT INTO load_events (id, model_dir, runtime, device, success, class_count, error, duration_ms, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ev.ID, ev.ModelDir, ev.Runtime, ev.Device, ev.Success, ev.ClassCount, ev.Error, ev.DurationMS, ev.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert load event: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit events, newest first.
func (r *LoadEventRepository) Recent(limit int) ([]models.LoadEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	events := []models.LoadEvent{}
	err := r.db.read(func(conn *sql.DB) error {
		rows, err := conn.Query(`
			SELECT id, model_dir, runtime, device, success, class_count, error, duration_ms, timestamp
			FROM load_events ORDER BY timestamp DESC, created_at DESC LIMIT ?
		`, limit)
		if err != nil {
			return fmt.Errorf("failed to query load events: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var ev models.LoadEvent
			if err := rows.Scan(&ev.ID, &ev.ModelDir, &ev.Runtime, &ev.Device, &ev.Success,
				&ev.ClassCount, &ev.Error, &ev.DurationMS, &ev.Timestamp); err != nil {
				return fmt.Errorf("failed to scan load event: %w", err)
			}
			events = append(events, ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Stats counts recorded attempts and finds the latest successful load.
func (r *LoadEventRepository) Stats() (*models.LoadEventStats, error) {
	stats := &models.LoadEventStats{}
	err := r.db.read(func(conn *sql.DB) error {
		err := conn.QueryRow(`
			SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
			FROM load_events
		`).Scan(&stats.Total, &stats.Failures)
		if err != nil {
			return fmt.Errorf("failed to count load events: %w", err)
		}

		var last time.Time
		err = conn.QueryRow(`
			SELECT timestamp FROM load_events WHERE success = 1 ORDER BY timestamp DESC LIMIT 1
		`).Scan(&last)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to query last load: %w", err)
		default:
			stats.LastSuccess = last
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteAll removes the whole history.
func (r *LoadEventRepository) DeleteAll() error {
	return r.db.write(func(conn *sql.DB) error {
		if _, err := conn.Exec(`DELETE FROM load_events`); err != nil {
			return fmt.Errorf("failed to delete load events: %w", err)
		}
		return nil
	})
}
