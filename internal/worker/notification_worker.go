package worker

import (
	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/service"
)

// StartNotificationWorker registers notification handlers and returns a stop function that
// flushes and closes the broker publishers.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) func() {
	if notificationService == nil {
		return func() {}
	}
	notificationService.RegisterHandlers()
	return func() {
		if err := notificationService.Close(); err != nil && logger != nil {
			logger.Warn("closing event publishers", zap.Error(err))
		}
	}
}
