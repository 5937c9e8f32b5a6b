package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"parkgate/internal/domain/parking"
)

// LedgerRepository is the gorm-backed LedgerStore over the car_logs and
// incidents tables.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ LedgerStore = (*LedgerRepository)(nil)

type CarLog struct {
	ID           int64     `gorm:"primaryKey"`
	Plate        string    `gorm:"not null;index"`
	Paid         bool      `gorm:"not null;default:false"`
	EntryTime    time.Time `gorm:"not null;index"`
	ExitTime     *time.Time
	AmountPaid   *int64
	RawDetection datatypes.JSON
	CreatedAt    time.Time
}

func (CarLog) TableName() string { return "car_logs" }

type IncidentLog struct {
	ID           int64     `gorm:"primaryKey"`
	Plate        string    `gorm:"not null;index"`
	Timestamp    time.Time `gorm:"not null;index"`
	IncidentType string    `gorm:"not null"`
	CreatedAt    time.Time
}

func (IncidentLog) TableName() string { return "incidents" }

func (r *LedgerRepository) InsertEntry(ctx context.Context, event *parking.Event) error {
	row := CarLog{
		Plate:     event.Plate,
		Paid:      event.Paid,
		EntryTime: event.EntryTime,
		ExitTime:  event.ExitTime,
		CreatedAt: time.Now(),
	}
	if len(event.RawDetection) > 0 {
		raw, err := json.Marshal(event.RawDetection)
		if err != nil {
			return fmt.Errorf("marshal raw detection: %w", err)
		}
		row.RawDetection = raw
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	event.ID = row.ID
	return nil
}

func (r *LedgerRepository) UpdateEvent(ctx context.Context, id int64, update parking.SettlementUpdate) error {
	// Single Updates call so the settlement fields land in one statement
	// and concurrent readers never observe a partial commit.
	result := r.db.WithContext(ctx).
		Model(&CarLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"paid":        update.Paid,
			"exit_time":   update.ExitTime,
			"amount_paid": update.AmountPaid,
		})
	if result.Error != nil {
		return fmt.Errorf("update event %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update event %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *LedgerRepository) FindLatestPaid(ctx context.Context, plate string) (*parking.Event, error) {
	var row CarLog
	err := r.db.WithContext(ctx).
		Where("plate = ? AND paid = ?", plate, true).
		Order("entry_time DESC").
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest paid for %s: %w", plate, err)
	}
	return rowToEvent(&row)
}

func (r *LedgerRepository) FindOldestUnpaid(ctx context.Context, plate string) (*parking.Event, error) {
	var row CarLog
	err := r.db.WithContext(ctx).
		Where("plate = ? AND paid = ?", plate, false).
		Order("entry_time ASC").
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find oldest unpaid for %s: %w", plate, err)
	}
	return rowToEvent(&row)
}

func (r *LedgerRepository) InsertIncident(ctx context.Context, incident *parking.Incident) error {
	row := IncidentLog{
		Plate:        incident.Plate,
		Timestamp:    incident.Timestamp,
		IncidentType: incident.IncidentType,
		CreatedAt:    time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	incident.ID = row.ID
	return nil
}

func (r *LedgerRepository) ListEvents(ctx context.Context) ([]parking.Event, error) {
	var rows []CarLog
	err := r.db.WithContext(ctx).
		Order("entry_time DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]parking.Event, 0, len(rows))
	for i := range rows {
		event, err := rowToEvent(&rows[i])
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}

func (r *LedgerRepository) ListIncidents(ctx context.Context) ([]parking.Incident, error) {
	var rows []IncidentLog
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	incidents := make([]parking.Incident, 0, len(rows))
	for _, row := range rows {
		incidents = append(incidents, parking.Incident{
			ID:           row.ID,
			Plate:        row.Plate,
			Timestamp:    row.Timestamp,
			IncidentType: row.IncidentType,
		})
	}
	return incidents, nil
}

func rowToEvent(row *CarLog) (*parking.Event, error) {
	event := &parking.Event{
		ID:         row.ID,
		Plate:      row.Plate,
		Paid:       row.Paid,
		EntryTime:  row.EntryTime,
		ExitTime:   row.ExitTime,
		AmountPaid: row.AmountPaid,
	}
	if len(row.RawDetection) > 0 {
		if err := json.Unmarshal(row.RawDetection, &event.RawDetection); err != nil {
			return nil, fmt.Errorf("unmarshal raw detection for event %d: %w", row.ID, err)
		}
	}
	return event, nil
}
