package notification

import (
	"context"
	"fmt"

	userRepo "shutterhub/database/repository/user"
	"shutterhub/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// FCMNotificationService delivers pushes through Firebase Cloud Messaging.
type FCMNotificationService struct {
	users  userRepo.UserRepository
	logger *zap.Logger
}

func NewFCMNotificationService(users userRepo.UserRepository, logger *zap.Logger) (*FCMNotificationService, error) {
	if users == nil {
		return nil, fmt.Errorf("notification service initialization error: user repository is nil")
	}
	return &FCMNotificationService{users: users, logger: logger}, nil
}

// SendUserPushNotification looks up a user's FCM token and sends a push.
func (s *FCMNotificationService) SendUserPushNotification(
	ctx context.Context,
	userID, title, body string,
	data map[string]string,
) error {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("SendUserPushNotification: could not find user %s: %w", userID, err)
	}
	if u.FCMToken == "" {
		// No registered device; nothing to deliver.
		return nil
	}

	msg := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	response, err := utils.FCMClient.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("SendUserPushNotification: failed to send FCM message: %w", err)
	}

	s.logger.Debug("push notification sent",
		zap.String("user", userID), zap.String("response", response))
	return nil
}
