package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/goodcontent-auth/internal/database"
	"github.com/isdelr/goodcontent-auth/internal/models"
	ws "github.com/isdelr/goodcontent-auth/internal/websocket"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// Publisher receives every recorded event as an encoded websocket message.
type Publisher interface {
	Publish(message []byte)
}

// EventService provides business logic for event management.
type EventService struct {
	db        *sql.DB
	dialect   database.Dialect
	publisher Publisher
	now       func() time.Time
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, dialect database.Dialect, publisher Publisher) *EventService {
	return &EventService{db: db, dialect: dialect, publisher: publisher, now: time.Now}
}

// CreateEvent stores a new event and forwards it to the publisher.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		"INSERT INTO events (id, type, level, message, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		event.ID, event.Type, event.Level, event.Message, event.UserID, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ws.NewEventMessage(event))
	}
	return nil
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		"SELECT id, type, level, message, user_id, created_at FROM events ORDER BY created_at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var userID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &userID, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		if userID.Valid {
			event.UserID = &userID.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEvents deletes events created before the given time.
func (s *EventService) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind("DELETE FROM events WHERE created_at < ?"), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
