package service

import (
	"context"

	"go.uber.org/zap"

	"tyr/domain/book"
	"tyr/infra/kafka"
	"tyr/infra/outbox"
)

// TickPublisher receives a top-of-book snapshot after each processed
// message. kafka.Producer satisfies it.
type TickPublisher interface {
	PublishTick(ctx context.Context, tick kafka.Tick) error
}

type Config struct {
	Outbox *outbox.Outbox // optional: durable trade delivery
	Ticks  TickPublisher  // optional: market data stream
	Log    *zap.Logger
}

// Engine wires the Book to its delivery collaborators. All writes go
// through Process or Pump; the Book itself is never handed out.
type Engine struct {
	book  *book.Book
	ob    *outbox.Outbox
	ticks TickPublisher
	log   *zap.Logger

	exported int // journal records already pushed downstream
	rejected uint64
}

func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		book:  book.New(),
		ob:    cfg.Outbox,
		ticks: cfg.Ticks,
		log:   log,
	}
}

// Process consumes one message and exports whatever it produced.
// Callers must not invoke it concurrently; Pump is the safe harness.
func (e *Engine) Process(msg book.Msg) error {
	err := e.book.Process(msg)
	if err != nil {
		e.rejected++
		e.log.Warn("message rejected",
			zap.Stringer("type", msg.Type),
			zap.Uint64("id", msg.ID),
			zap.Error(err),
		)
		return err
	}

	e.exportTrades()
	e.publishTick(msg.TS)
	return nil
}

// Pump drains msgs until the channel closes or ctx is canceled,
// processing them one at a time on the calling goroutine. It does not
// lock the Book: direct calls to Process or the query methods from
// other goroutines are not serialized with it.
func (e *Engine) Pump(ctx context.Context, msgs <-chan book.Msg) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			_ = e.Process(msg) // rejections are logged and counted
		}
	}
}

func (e *Engine) exportTrades() {
	if e.ob == nil {
		return
	}
	trades := e.book.Trades()
	for _, tr := range trades[e.exported:] {
		if _, err := e.ob.Append(tr); err != nil {
			e.log.Error("outbox append failed", zap.Error(err))
		}
	}
	e.exported = len(trades)
}

func (e *Engine) publishTick(ts int64) {
	if e.ticks == nil {
		return
	}
	tick := kafka.Tick{
		BestBid:    e.book.BestBid(),
		BestAsk:    e.book.BestAsk(),
		BestBidQty: e.book.BestBidQty(),
		BestAskQty: e.book.BestAskQty(),
		TS:         ts,
	}
	if err := e.ticks.PublishTick(context.Background(), tick); err != nil {
		e.log.Warn("tick publish failed", zap.Error(err))
	}
}

// ---------------- Queries ---------------- //

func (e *Engine) BestBid() int64        { return e.book.BestBid() }
func (e *Engine) BestAsk() int64        { return e.book.BestAsk() }
func (e *Engine) BestBidQty() int64     { return e.book.BestBidQty() }
func (e *Engine) BestAskQty() int64     { return e.book.BestAskQty() }
func (e *Engine) TotalBidQty() int64    { return e.book.TotalBidQty() }
func (e *Engine) TotalAskQty() int64    { return e.book.TotalAskQty() }
func (e *Engine) TotalMessages() uint64 { return e.book.TotalMessages() }
func (e *Engine) TotalTrades() uint64   { return e.book.TotalTrades() }
func (e *Engine) Rejected() uint64      { return e.rejected }
