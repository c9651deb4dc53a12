package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"smart_envi/internal/models"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

var _ SnapshotRepo = (*SnapshotSQLite)(nil)

const (
	upsertSnapshotSQL = `
		INSERT INTO device_snapshots (device_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			data=excluded.data,
			updated_at=excluded.updated_at
	`

	selectSnapshotsSQL = `
		SELECT device_id, data FROM device_snapshots
	`
)

// Save upserts the snapshot for one device. The full vendor payload is kept
// when present so opaque pass-through fields survive a restart.
func (r *SnapshotSQLite) Save(ctx context.Context, device models.Device) error {
	payload := []byte(device.Raw)
	if len(payload) == 0 {
		b, err := json.Marshal(device)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := r.db.ExecContext(ctx, upsertSnapshotSQL,
		string(device.ID),
		string(payload),
		time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	return err
}

// LoadAll returns every persisted snapshot. Rows with unparseable payloads
// are skipped; a stale warm start beats a failed one.
func (r *SnapshotSQLite) LoadAll(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectSnapshotsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Device, 0, 8)
	for rows.Next() {
		var (
			deviceID string
			data     string
		)
		if err := rows.Scan(&deviceID, &data); err != nil {
			return nil, err
		}
		var dev models.Device
		if err := json.Unmarshal([]byte(data), &dev); err != nil {
			continue
		}
		if dev.ID == "" {
			dev.ID = models.StringID(deviceID)
		}
		out = append(out, dev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
