package worker

import (
	"go.uber.org/zap"

	"github.com/MohamadAlaskari/EventHub/internal/service"
)

// StartNotificationWorker subscribes the notification service to account
// email events. Delivery is synchronous on the publisher's goroutine.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notification service not configured; account emails are disabled")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification worker started")
}
