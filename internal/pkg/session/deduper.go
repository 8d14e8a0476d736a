// internal/pkg/session/deduper.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Webhook providers deliver at-least-once; correlation ids are kept long
// enough to cover any realistic redelivery schedule.
const dedupTTL = 24 * time.Hour

// Deduper suppresses replayed webhook deliveries by provider message id.
type Deduper struct {
	client *redis.Client
}

func NewDeduper(client *redis.Client) *Deduper {
	return &Deduper{client: client}
}

// Seen atomically marks a provider message id as processed and reports
// whether it had been seen before. Errors are returned so callers can
// fall back to a store-level check rather than dropping the message.
func (d *Deduper) Seen(ctx context.Context, kind, providerRef string) (bool, error) {
	if providerRef == "" {
		return false, nil
	}

	key := fmt.Sprintf("webhook_dedup:%s:%s", kind, providerRef)
	set, err := d.client.SetNX(ctx, key, 1, dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook dedup key: %w", err)
	}

	// SetNX succeeded means this is the first delivery.
	return !set, nil
}
