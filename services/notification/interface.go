package notification

import (
	"context"
)

// NotificationService delivers fire-and-forget push events. Senders never
// treat a delivery failure as a reason to roll back the state change that
// produced the event.
type NotificationService interface {
	// SendUserPushNotification pushes a message to one user's device.
	SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error
}
