package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusInterested  Status = "interested"
	StatusNegotiating Status = "negotiating"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
)

var statuses = map[Status]struct{}{
	StatusNew: {}, StatusContacted: {}, StatusInterested: {},
	StatusNegotiating: {}, StatusWon: {}, StatusLost: {},
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(normalize(raw))
	_, ok := statuses[s]
	return s, ok
}

// Open reports whether the lead is still being worked. Closed leads do not age.
func (s Status) Open() bool {
	return s != StatusWon && s != StatusLost
}

// ClosedStatuses lists statuses excluded from aging sweeps.
func ClosedStatuses() []Status {
	return []Status{StatusWon, StatusLost}
}

type Lead struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	BusinessName string        `gorm:"column:business_name;type:text;not null"`
	ContactName  *string       `gorm:"column:contact_name;type:text"`
	Email        *string       `gorm:"type:text"`
	Phone        *string       `gorm:"type:text"`
	Notes        *string       `gorm:"type:text"`
	Status       Status        `gorm:"type:text;not null;default:new;index:ix_leads_status"`
	OwnerID      *snowflake.ID `gorm:"column:owner_id;index:ix_leads_owner"`
	RestaurantID *snowflake.ID `gorm:"column:restaurant_id"`
	LastNudgedAt *time.Time    `gorm:"column:last_nudged_at"`
	StaleSince   *time.Time    `gorm:"column:stale_since"`
	CreatedAt    time.Time     `gorm:"not null"`
	UpdatedAt    *time.Time    `gorm:"autoUpdateTime:false"`
}

func (Lead) TableName() string { return "leads" }

// Aging is the part of the lead the aging policy reads.
func (l Lead) Aging() Aging {
	return Aging{CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt}
}

// Owner is the rep a lead belongs to, as needed for notifications.
type Owner struct {
	ID        snowflake.ID
	Name      string
	Email     string
	PushToken *string
}
