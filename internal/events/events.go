// Package events publishes domain events for downstream consumers such as
// the marketing site cache and the CRM sync.
package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TypeCommissionRecorded = "commission.recorded"
	TypeLeadStale          = "lead.stale"
	TypeLeadClaimed        = "lead.claimed"
	TypeTierChanged        = "tier.changed"
	TypePayrollClosed      = "payroll.closed"
)

// Event is one domain fact. Key orders events of the same aggregate onto one
// partition.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

//go:generate mockgen -source=events.go -destination=./mocks/mock_publisher.go -package=mocks

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New builds an event with a time-ordered id.
func New(eventType, key string, occurredAt time.Time, payload any) Event {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(occurredAt), entropy)
	entropyMu.Unlock()

	return Event{
		ID:         id.String(),
		Type:       eventType,
		Key:        key,
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	}
}

// Encode renders the wire form of evt.
func Encode(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}
