// Command engined replays a message stream through the full delivery
// pipeline: engine -> trade outbox (pebble) -> Kafka broadcaster, plus
// a best-effort top-of-book tick stream.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tyr/domain/book"
	"tyr/feed"
	"tyr/infra/kafka"
	"tyr/infra/outbox"
	"tyr/jobs/broadcaster"
	"tyr/service"
)

func main() {
	input := flag.String("input", "", "CSV message dataset to replay")
	dataDir := flag.String("data-dir", "./outbox_data", "trade outbox directory")
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	tradesTopic := flag.String("trades-topic", "trades", "Kafka topic for executions")
	ticksTopic := flag.String("ticks-topic", "", "Kafka topic for top-of-book ticks (empty = off)")
	drainEvery := flag.Duration("drain-interval", 250*time.Millisecond, "outbox drain interval")
	flag.Parse()

	log, _ := zap.NewProduction()
	defer log.Sync()

	if *input == "" {
		log.Fatal("missing -input dataset")
	}

	// ---------------- Outbox ----------------

	ob, err := outbox.Open(*dataDir)
	if err != nil {
		log.Fatal("outbox init failed", zap.Error(err))
	}
	defer ob.Close()

	// ---------------- Kafka ----------------

	brokerList := strings.Split(*brokers, ",")

	bc, err := broadcaster.New(ob, brokerList, *tradesTopic, *drainEvery, log)
	if err != nil {
		log.Fatal("broadcaster init failed", zap.Error(err))
	}
	defer bc.Close()

	var ticks service.TickPublisher
	if *ticksTopic != "" {
		producer := kafka.NewProducer(brokerList, *ticksTopic)
		defer producer.Close()
		ticks = producer
	}

	// ---------------- Engine ----------------

	eng := service.New(service.Config{
		Outbox: ob,
		Ticks:  ticks,
		Log:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bc.Start(ctx)

	// ---------------- Replay ----------------

	msgs, err := feed.NewReader(log).ReadFile(*input)
	if err != nil {
		log.Fatal("dataset load failed", zap.Error(err))
	}

	ch := make(chan book.Msg, 1024)
	go func() {
		defer close(ch)
		for _, m := range msgs {
			select {
			case <-ctx.Done():
				return
			case ch <- m:
			}
		}
	}()

	if err := eng.Pump(ctx, ch); err != nil {
		log.Warn("pump stopped", zap.Error(err))
	}

	// Let the broadcaster flush what the replay produced.
	bc.DrainOnce()

	log.Info("replay complete",
		zap.Uint64("messages", eng.TotalMessages()),
		zap.Uint64("trades", eng.TotalTrades()),
		zap.Uint64("rejected", eng.Rejected()),
		zap.Int64("best_bid", eng.BestBid()),
		zap.Int64("best_ask", eng.BestAsk()),
	)
}
