package domain

import "context"

//go:generate mockgen -source=notifier.go -destination=../mocks/mock_notifier.go -package=mocks

// Notifier reminds an owner that a lead needs follow up. It returns the
// channels that accepted the reminder.
type Notifier interface {
	Nudge(ctx context.Context, owner Owner, notice Notice) ([]string, error)
}

// Notice is the lead-specific content of a nudge.
type Notice struct {
	LeadID         string
	BusinessName   string
	DaysSinceTouch int
	LeadURL        string
}
