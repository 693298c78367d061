package service

import (
	"context"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) Notify(ctx context.Context, userID string, kind domain.NotificationType, title, message string, attrs map[string]string) error {
	return s.noteRepo.Create(ctx, &domain.Notification{
		UserID:     userID,
		Type:       kind,
		Title:      title,
		Message:    message,
		Attributes: attrs,
	})
}

func (s *notificationService) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	return s.noteRepo.List(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id int64, userID string) error {
	return s.noteRepo.MarkAsRead(ctx, id, userID)
}
