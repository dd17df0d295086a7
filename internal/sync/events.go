package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"dwp/internal/models"
)

// EventLog appends immutable sync events. Rows are never updated or deleted.
type EventLog struct {
	db *sql.DB
}

func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// Record appends one event. Logging is best-effort: a write failure is
// logged and swallowed so it never fails the sync operation it describes.
func (e *EventLog) Record(ctx context.Context, eventType, entityType, entityID string, data interface{}, actor Actor) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("sync events: marshal %s: %v", eventType, err)
		return
	}
	_, err = e.db.ExecContext(ctx, `INSERT INTO dw_events
		(id, type, entity_type, entity_id, data, user_id, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		uuid.NewString(), eventType, entityType, entityID, string(payload),
		actor.ID, timestamp())
	if err != nil {
		log.Printf("sync events: record %s: %v", eventType, err)
	}
}

// History returns the newest batch sync events, most recent first. Single
// record events like requirement.pushed_to_crm stay out of the listing.
func (e *EventLog) History(ctx context.Context, limit int) ([]models.SyncEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := e.db.QueryContext(ctx, `SELECT id, type, COALESCE(entity_type,''),
		COALESCE(entity_id,''), data, COALESCE(user_id,''), created_at
		FROM dw_events WHERE type LIKE 'sync.%'
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load event history: %w", err)
	}
	defer rows.Close()

	events := []models.SyncEvent{}
	for rows.Next() {
		var ev models.SyncEvent
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.EntityType, &ev.EntityID,
			&ev.Data, &ev.UserID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LastSync returns the most recent batch sync event, or nil when no sync
// has run yet.
func (e *EventLog) LastSync(ctx context.Context) (*models.SyncEvent, error) {
	var ev models.SyncEvent
	err := e.db.QueryRowContext(ctx, `SELECT id, type, COALESCE(entity_type,''),
		COALESCE(entity_id,''), data, COALESCE(user_id,''), created_at
		FROM dw_events WHERE type LIKE 'sync.%'
		ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&ev.ID, &ev.Type, &ev.EntityType, &ev.EntityID, &ev.Data,
			&ev.UserID, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last sync: %w", err)
	}
	return &ev, nil
}
