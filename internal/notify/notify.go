// Package notify fans change reports out to interested consumers over redis
// pub/sub, one channel per subscriber.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/logger"
)

const channelPrefix = "adwatch:events:"

// Channel returns the pub/sub channel name for a subscriber.
func Channel(subscriberID string) string {
	return channelPrefix + subscriberID
}

// Publisher pushes change reports onto redis. Delivery is at-most-once:
// consumers that are not subscribed at publish time miss the event, the
// stored listing state remains the source of truth.
type Publisher struct {
	rdb *redis.Client
	log logger.Logger
}

func NewPublisher(rdb *redis.Client, log logger.Logger) *Publisher {
	return &Publisher{rdb: rdb, log: log}
}

// Publish assigns the report an event ID and sends it to the subscriber's
// channel. Empty reports are dropped; nobody wants "nothing changed" pings.
func (p *Publisher) Publish(ctx context.Context, report *domain.ChangeReport) error {
	if report.Empty() {
		return nil
	}
	report.EventID = uuid.NewString()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	channel := Channel(report.SubscriberID)
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	p.log.Debug("change report published",
		logger.String("channel", channel),
		logger.String("event_id", report.EventID),
		logger.Int("added", len(report.Added)),
		logger.Int("removed", len(report.Removed)))
	return nil
}
