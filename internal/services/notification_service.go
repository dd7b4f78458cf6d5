package services

import (
	"context"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time checks: the notification service is the hand-off for both
// event kinds.
var (
	_ TransactionNotifier = (*NotificationService)(nil)
	_ TimeoutNotifier     = (*NotificationService)(nil)
)

// NotificationService composes notification hand-off records from
// just-created transactions and timeouts. It writes the fields a delivery
// collaborator needs to render a user-facing message; rendering and
// delivery happen outside this service.
type NotificationService struct {
	notificationRepo repositories.NotificationRepository
	connRepo         repositories.ConnectionRepository
	log              *logrus.Entry
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notificationRepo repositories.NotificationRepository, connRepo repositories.ConnectionRepository, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		connRepo:         connRepo,
		log:              logger.WithField("component", "notifications"),
	}
}

// TransactionCreated hands off a just-applied transaction to the delivery
// collaborator. The receiver is the recipient.
func (s *NotificationService) TransactionCreated(ctx context.Context, transaction *models.Transaction) error {
	return s.notificationRepo.Create(ctx, &models.Notification{
		RecipientID:   transaction.ReceiverID,
		Kind:          models.NotificationKindTransaction,
		SenderID:      transaction.SenderID,
		Points:        transaction.Points,
		Message:       transaction.Message,
		TransactionID: transaction.ID,
		Status:        models.NotificationStatusPending,
	})
}

// TimeoutCreated hands off a just-started cooldown. The recipient is the
// requesting user's partner, resolved from the owning connection.
func (s *NotificationService) TimeoutCreated(ctx context.Context, timeout *models.Timeout) error {
	conn, err := s.connRepo.FindByID(ctx, timeout.ConnectionID)
	if err != nil {
		return err
	}
	return s.notificationRepo.Create(ctx, &models.Notification{
		RecipientID: conn.PartnerOf(timeout.UserID),
		Kind:        models.NotificationKindTimeout,
		SenderID:    timeout.UserID,
		TimeoutID:   timeout.ID,
		ExpiresAt:   timeout.ExpiresAt(),
		Status:      models.NotificationStatusPending,
	})
}

// GetNotifications returns the recipient's notifications with pagination,
// newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, recipientID string, page, limit int) ([]*models.Notification, error) {
	return s.notificationRepo.FindByRecipient(ctx, recipientID, page, limit)
}

// UpdateStatus records the delivery collaborator's outcome for a
// notification.
func (s *NotificationService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.notificationRepo.UpdateStatus(ctx, id, status)
}
