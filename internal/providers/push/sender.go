package push

import (
	"context"
	"errors"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

const androidChannel = "tastelanc_backoffice"

var ErrMissingToken = errors.New("push token is empty")

type Notification struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type FirebaseSender struct {
	init *Initializer
	log  *zap.Logger
}

func NewFirebaseSender(init *Initializer, log *zap.Logger) *FirebaseSender {
	return &FirebaseSender{init: init, log: log.Named("push.firebase")}
}

func (s *FirebaseSender) Send(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.Token) == "" {
		return ErrMissingToken
	}
	client, err := s.init.Client(ctx)
	if err != nil {
		return err
	}
	id, err := client.Send(ctx, buildMessage(n))
	if err != nil {
		return err
	}
	s.log.Debug("push sent", zap.String("message_id", id))
	return nil
}

func buildMessage(n Notification) *messaging.Message {
	badge := 1
	return &messaging.Message{
		Token: n.Token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: androidChannel,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: n.Title, Body: n.Body},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}
}

type NoOpSender struct{}

func (NoOpSender) Send(ctx context.Context, n Notification) error {
	return nil
}
