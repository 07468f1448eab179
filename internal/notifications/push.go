// internal/notifications/push.go
// Push transport: Firebase Cloud Messaging plus a development mock

package notifications

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushService delivers a push notification to a single device
type PushService interface {
	SendPush(ctx context.Context, notification *PushNotification) error
}

// FCMPushService implements push notifications using Firebase Cloud Messaging
type FCMPushService struct {
	client *messaging.Client
}

// NewFCMPushService creates a new FCM push service from a credentials file
func NewFCMPushService(ctx context.Context, credentialsPath string) (PushService, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMPushService{client: client}, nil
}

// SendPush sends a push notification to the device token
func (s *FCMPushService) SendPush(ctx context.Context, n *PushNotification) error {
	msg := &messaging.Message{
		Token: n.Token,
		Notification: &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.ImageURL,
		},
		Data: n.Data,
	}
	if n.ImageURL != "" {
		msg.Android = &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{ImageURL: n.ImageURL},
		}
		msg.APNS = &messaging.APNSConfig{
			Payload:    &messaging.APNSPayload{Aps: &messaging.Aps{MutableContent: true}},
			FCMOptions: &messaging.APNSFCMOptions{ImageURL: n.ImageURL},
		}
	}

	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	return nil
}

// MockPushService logs pushes instead of sending them; used in development
// and tests.
type MockPushService struct {
	Sent []*PushNotification
}

// NewMockPushService creates a mock push service
func NewMockPushService() *MockPushService {
	return &MockPushService{}
}

// SendPush records and logs the notification
func (s *MockPushService) SendPush(_ context.Context, n *PushNotification) error {
	s.Sent = append(s.Sent, n)
	log.Printf("[Push Mock] %q to token %s: %s", n.Title, n.Token, n.Body)
	return nil
}
