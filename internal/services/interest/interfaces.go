package interest

import (
	"context"

	"estatehub/internal/models"
	"estatehub/internal/services/notification"
)

// Service manages seeker interests and the paid unlock of their contact
// details.
type Service interface {
	Express(ctx context.Context, seekerID, propertyID uint, message string) (*models.Interest, error)

	// Unlock spends UnlockCost credits of the property's agent and reveals the
	// seeker's contact details. It is all-or-nothing.
	Unlock(ctx context.Context, interestID, agentID uint) (*UnlockResult, error)

	ListForAgent(ctx context.Context, agentID uint) ([]View, error)
	ListForSeeker(ctx context.Context, seekerID uint) ([]View, error)
	Get(ctx context.Context, interestID, userID uint) (*View, error)
}

// Cache is the subset of the cache used to drop stale balances.
type Cache interface {
	Delete(ctx context.Context, keys ...string) error
}

type Notifier interface {
	Send(ctx context.Context, in notification.Input)
}

type MetricsCollector interface {
	RecordUnlock(result string)
	RecordInterest(result string)
}

type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordUnlock(string)   {}
func (n *NoopMetricsCollector) RecordInterest(string) {}
