package notify

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender is the production Sender backed by Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes a Firebase app from service-account credentials
// and returns a Sender over its messaging client. The credentials JSON is
// built by config from the project ID, client email and private key.
func NewFCMSender(ctx context.Context, projectID string, credentialsJSON []byte) (*FCMSender, error) {
	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	return s.client.Send(ctx, message)
}

func (s *FCMSender) SendMulticast(ctx context.Context, message *messaging.MulticastMessage) (int, int, error) {
	resp, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return 0, 0, err
	}

	for i, r := range resp.Responses {
		if !r.Success {
			log.Printf("[FCM] Token %d failed: %v", i, r.Error)
		}
	}
	return resp.SuccessCount, resp.FailureCount, nil
}
