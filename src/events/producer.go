package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
)

type EventType string

const (
	TradeCreated EventType = "TRADE_CREATED"
	TradeUpdated EventType = "TRADE_UPDATED"
	TradeDeleted EventType = "TRADE_DELETED"
	TradeSynced  EventType = "TRADE_SYNCED"
)

type TradeEvent struct {
	EventType EventType    `json:"event_type"`
	UserID    uint         `json:"user_id"`
	TradeID   uint         `json:"trade_id"`
	Trade     *model.Trade `json:"trade,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewTradeEvent(eventType EventType, userID uint, trade *model.Trade) TradeEvent {
	e := TradeEvent{EventType: eventType, UserID: userID, Timestamp: time.Now().UTC()}
	if trade != nil {
		e.TradeID = trade.ID
		if eventType != TradeDeleted {
			e.Trade = trade
		}
	}
	return e
}

type Publisher interface {
	PublishTrade(ctx context.Context, event TradeEvent) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes trade events keyed by user, so one user's events stay
// ordered within a partition.
type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: topic}
}

func (p *Producer) PublishTrade(ctx context.Context, event TradeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.UserID), 10)),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) PublishTrade(context.Context, TradeEvent) error { return nil }

// New returns a kafka Producer, or Noop when no brokers are configured.
func New(config Config) (Publisher, func() error) {
	if len(config.Brokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, trade events disabled")
		return Noop{}, func() error { return nil }
	}
	p := NewProducer(config.Brokers, config.Topic)
	logger.WithFields(map[string]interface{}{
		"brokers": config.Brokers,
		"topic":   config.Topic,
	}).Info("Trade event producer ready")
	return p, p.Close
}
