// Package kafka publishes top-of-book market data ticks. Tick
// delivery is best-effort: a lost tick is superseded by the next one,
// so the writer runs async with single-broker acks.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Tick is a top-of-book snapshot taken after a message (or batch of
// messages) has been processed.
type Tick struct {
	BestBid    int64 `json:"best_bid"`
	BestAsk    int64 `json:"best_ask"`
	BestBidQty int64 `json:"best_bid_qty"`
	BestAskQty int64 `json:"best_ask_qty"`
	TS         int64 `json:"ts"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) PublishTick(ctx context.Context, tick Tick) error {
	value, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("kafka: encode tick: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: value}); err != nil {
		return fmt.Errorf("kafka: publish tick: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
