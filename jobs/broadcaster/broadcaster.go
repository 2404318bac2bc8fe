// Package broadcaster drains the trade outbox to a Kafka topic with
// at-least-once delivery: records are marked SENT before the produce
// and ACKED after the broker confirms it, so a crash between the two
// replays the trade on the next pass.
package broadcaster

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"tyr/infra/outbox"
)

// Event is the published trade payload.
type Event struct {
	Seq    uint64 `json:"seq"`
	BuyID  uint64 `json:"buy_id"`
	SellID uint64 `json:"sell_id"`
	Price  int64  `json:"price"`
	Qty    int64  `json:"qty"`
	TS     int64  `json:"ts"`
}

type Broadcaster struct {
	ob       *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(
	ob *outbox.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
	log *zap.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProducer(ob, producer, topic, interval, log), nil
}

// NewWithProducer wires an existing producer; used by tests.
func NewWithProducer(
	ob *outbox.Outbox,
	producer sarama.SyncProducer,
	topic string,
	interval time.Duration,
	log *zap.Logger,
) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		ob:       ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Start runs the drain loop until ctx is canceled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.DrainOnce()
			}
		}
	}()
}

// DrainOnce publishes every pending outbox record once. Send failures
// leave the record in SENT for the next pass.
func (b *Broadcaster) DrainOnce() {
	err := b.ob.ScanPending(func(rec *outbox.Record) error {
		if err := b.ob.MarkSent(rec.Seq); err != nil {
			return err
		}

		value, err := json.Marshal(Event{
			Seq:    rec.Seq,
			BuyID:  rec.Trade.BuyID,
			SellID: rec.Trade.SellID,
			Price:  rec.Trade.Price,
			Qty:    rec.Trade.Qty,
			TS:     rec.Trade.TS,
		})
		if err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(rec.Seq, 10)),
			Value: sarama.ByteEncoder(value),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("trade publish failed, will retry",
				zap.Uint64("seq", rec.Seq),
				zap.Error(err),
			)
			return nil
		}

		return b.ob.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Error("outbox drain aborted", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
