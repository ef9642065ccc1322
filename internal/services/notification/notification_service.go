package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/realtime"
)

// NotificationService persists notifications and pushes them to the user via
// the WebSocket hub plus a per-user Redis channel.
type NotificationService struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewNotificationService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *NotificationService {
	return &NotificationService{DB: db, Hub: hub, RDB: rdb}
}

// Notify writes the notification inside tx and pushes it after the write
// succeeds. Push failures are logged, never returned: delivery is best
// effort, the row is the source of truth.
func (s *NotificationService) Notify(tx *gorm.DB, userID uuid.UUID, typ models.NotificationType, title, body string, referenceID *uuid.UUID) error {
	n := models.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Body:        body,
		ReferenceID: referenceID,
	}

	if err := tx.Create(&n).Error; err != nil {
		return err
	}

	s.push(userID, &n)
	return nil
}

func (s *NotificationService) push(userID uuid.UUID, n *models.Notification) {
	payload := map[string]interface{}{
		"type":         "notification",
		"notification": n,
	}

	s.Hub.SendToUser(userID, payload)

	if s.RDB == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Notify] marshal error: %v", err)
		return
	}
	if err := s.RDB.Publish(context.Background(), "notifications:"+userID.String(), b).Err(); err != nil {
		log.Printf("[Notify] redis publish error: %v", err)
	}
}

// HasOverdueReminder reports whether an overdue reminder for this milestone
// was already sent to the user. Used by the reminder worker for idempotency.
func (s *NotificationService) HasOverdueReminder(userID, milestoneID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND reference_id = ?",
			userID, models.NotifMilestoneOverdue, milestoneID).
		Count(&count).Error
	return count > 0, err
}
