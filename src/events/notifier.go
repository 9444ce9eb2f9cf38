package events

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
)

type cacheInvalidator interface {
	Invalidate(ctx context.Context, userID uint) error
}

// TradeNotifier runs the side effects of a trade write: the user's cached
// analytics are dropped and an event is published. Failures are logged,
// never returned, since the write itself already succeeded.
type TradeNotifier struct {
	Cache     cacheInvalidator
	Publisher Publisher
}

func (n *TradeNotifier) TradeChanged(ctx context.Context, eventType EventType, userID uint, trade *model.Trade) {
	if n == nil {
		return
	}
	// a cancelled request must not skip invalidation
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	fields := map[string]interface{}{"user_id": userID, "event": eventType}
	if n.Cache != nil {
		if err := n.Cache.Invalidate(ctx, userID); err != nil {
			logger.WithFields(fields).WithError(err).Warn("Failed to invalidate analytics cache")
		}
	}
	if n.Publisher != nil {
		if err := n.Publisher.PublishTrade(ctx, NewTradeEvent(eventType, userID, trade)); err != nil {
			logger.WithFields(fields).WithError(err).Warn("Failed to publish trade event")
		}
	}
}
