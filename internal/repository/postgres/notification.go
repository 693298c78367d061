package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, note *domain.Notification) error {
	var attrs []byte
	if note.Attributes != nil {
		var err error
		attrs, err = json.Marshal(note.Attributes)
		if err != nil {
			return fmt.Errorf("marshal notification attributes: %w", err)
		}
	}
	query := `INSERT INTO notifications (user_id, type, title, message, is_read, attributes, created_at)
	          VALUES ($1, $2, $3, $4, false, $5, NOW()) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		note.UserID, note.Type, note.Title, note.Message, attrs,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	query := `SELECT id, user_id, type, title, message, is_read, attributes, created_at
	          FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var note domain.Notification
		var attrs []byte
		if err := rows.Scan(&note.ID, &note.UserID, &note.Type, &note.Title, &note.Message,
			&note.IsRead, &attrs, &note.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &note.Attributes); err != nil {
				return nil, 0, fmt.Errorf("decode notification attributes: %w", err)
			}
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID).Scan(&count); err != nil {
		return nil, 0, err
	}
	return notes, count, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}
