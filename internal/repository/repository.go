package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_envi/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// SnapshotRepo persists the last successfully fetched snapshot per device.
type SnapshotRepo interface {
	Save(ctx context.Context, device models.Device) error
	LoadAll(ctx context.Context) ([]models.Device, error)
}

// EventRepo is the append-only bridge log with filtered access.
type EventRepo interface {
	Append(ctx context.Context, e models.BridgeEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.BridgeEvent, error)
}

type Repository struct {
	Snapshots SnapshotRepo
	Events    EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Snapshots: NewSnapshotSQLite(db),
		Events:    NewEventSQLite(db),
		Auth:      NewAuthSQLite(db),
	}
}
