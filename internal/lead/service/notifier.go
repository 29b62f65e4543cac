package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/lead/domain"
	"github.com/tastelanc/backoffice/internal/providers/email"
	"github.com/tastelanc/backoffice/internal/providers/push"
)

const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// OwnerNotifier reminds reps by email and, when they registered a device, by
// push.
type OwnerNotifier struct {
	email email.Provider
	push  push.Sender
	log   *zap.Logger
}

func NewNotifier(emailProvider email.Provider, pushSender push.Sender, log *zap.Logger) domain.Notifier {
	return &OwnerNotifier{
		email: emailProvider,
		push:  pushSender,
		log:   log.Named("lead.notifier"),
	}
}

func (n *OwnerNotifier) Nudge(ctx context.Context, owner domain.Owner, notice domain.Notice) ([]string, error) {
	var (
		channels []string
		errs     []error
	)

	if owner.Email != "" {
		err := n.email.SendTemplate(ctx, []string{owner.Email}, "lead_nudge", map[string]any{
			"rep_name":      owner.Name,
			"business_name": notice.BusinessName,
			"days":          notice.DaysSinceTouch,
			"stale_after":   domain.StaleAfterDays,
			"lead_url":      notice.LeadURL,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		} else {
			channels = append(channels, ChannelEmail)
		}
	}

	if owner.PushToken != nil && *owner.PushToken != "" {
		err := n.push.Send(ctx, push.Notification{
			Token: *owner.PushToken,
			Title: "Lead needs follow up",
			Body:  fmt.Sprintf("%s has waited %d days", notice.BusinessName, notice.DaysSinceTouch),
			Data:  map[string]string{"lead_id": notice.LeadID, "type": "lead_nudge"},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("push: %w", err))
		} else {
			channels = append(channels, ChannelPush)
		}
	}

	if len(errs) > 0 {
		n.log.Warn("lead nudge partially failed",
			zap.String("lead_id", notice.LeadID),
			zap.Strings("delivered", channels),
			zap.Error(errors.Join(errs...)),
		)
	}
	return channels, errors.Join(errs...)
}
