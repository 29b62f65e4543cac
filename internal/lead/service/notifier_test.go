package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/lead/domain"
	"github.com/tastelanc/backoffice/internal/providers/email"
	"github.com/tastelanc/backoffice/internal/providers/push"
)

type fakeEmail struct {
	email.NoOpProvider
	err       error
	templates []string
}

func (f *fakeEmail) SendTemplate(ctx context.Context, to []string, name string, data map[string]any, _ ...email.Attachment) error {
	f.templates = append(f.templates, name)
	return f.err
}

type fakePush struct {
	err  error
	sent []push.Notification
}

func (f *fakePush) Send(ctx context.Context, n push.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func TestNotifierUsesEveryAvailableChannel(t *testing.T) {
	mail, device := &fakeEmail{}, &fakePush{}
	n := NewNotifier(mail, device, zap.NewNop())
	token := "tok"

	channels, err := n.Nudge(context.Background(),
		domain.Owner{Name: "Ana", Email: "ana@tastelanc.com", PushToken: &token},
		domain.Notice{LeadID: "5", BusinessName: "Luca", DaysSinceTouch: 9})
	assert.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail, ChannelPush}, channels)
	assert.Equal(t, []string{"lead_nudge"}, mail.templates)
	assert.Equal(t, "5", device.sent[0].Data["lead_id"])
}

func TestNotifierReportsPartialDelivery(t *testing.T) {
	mail, device := &fakeEmail{err: errors.New("smtp down")}, &fakePush{}
	n := NewNotifier(mail, device, zap.NewNop())
	token := "tok"

	channels, err := n.Nudge(context.Background(),
		domain.Owner{Email: "ana@tastelanc.com", PushToken: &token}, domain.Notice{LeadID: "5"})
	assert.Error(t, err)
	assert.Equal(t, []string{ChannelPush}, channels)
}

func TestNotifierSkipsMissingPushToken(t *testing.T) {
	mail, device := &fakeEmail{}, &fakePush{}
	channels, err := NewNotifier(mail, device, zap.NewNop()).Nudge(context.Background(),
		domain.Owner{Email: "ben@tastelanc.com"}, domain.Notice{LeadID: "6"})
	assert.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, channels)
	assert.Empty(t, device.sent)
}
