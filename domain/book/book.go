package book

import "errors"

var (
	// ErrDuplicateOrderID rejects a NewLimit whose id is already resting.
	ErrDuplicateOrderID = errors.New("book: duplicate order id")
	// ErrInvalidQuantity rejects NewLimit/NewMarket with qty <= 0.
	ErrInvalidQuantity = errors.New("book: quantity must be positive")
)

// tradeReserve is the pre-reserved trade journal capacity.
const tradeReserve = 1 << 20

// Book is the two-sided limit order book and matching engine. It owns
// all of its state; there are no globals. One goroutine drives it.
type Book struct {
	bids *levelTree
	asks *levelTree

	pool    *OrderPool
	locator map[uint64]*Order

	trades    []Trade
	recording bool

	totalMessages uint64
	totalTrades   uint64
}

// New returns an empty book with pre-reserved pool and journal
// capacity. Trade recording starts enabled.
func New() *Book {
	return &Book{
		bids:      newLevelTree(),
		asks:      newLevelTree(),
		pool:      NewOrderPool(),
		locator:   make(map[uint64]*Order, 1<<16),
		trades:    make([]Trade, 0, tradeReserve),
		recording: true,
	}
}

// SetTradeRecording toggles journal recording at runtime. The trade
// counter is maintained either way.
func (b *Book) SetTradeRecording(on bool) { b.recording = on }

// Process consumes one message to completion. It returns
// ErrInvalidQuantity or ErrDuplicateOrderID for rejected messages;
// a Cancel for an unknown id is a silent no-op.
func (b *Book) Process(msg Msg) error {
	b.totalMessages++

	switch msg.Type {
	case NewLimit:
		if msg.Qty <= 0 {
			return ErrInvalidQuantity
		}
		if _, dup := b.locator[msg.ID]; dup {
			return ErrDuplicateOrderID
		}
		o := b.pool.Get()
		o.ID = msg.ID
		o.Side = msg.Side
		o.Price = msg.Price
		o.Qty = msg.Qty
		if o.Side == Buy {
			b.matchLimitBuy(o, msg.TS)
		} else {
			b.matchLimitSell(o, msg.TS)
		}

	case NewMarket:
		if msg.Qty <= 0 {
			return ErrInvalidQuantity
		}
		b.sweepMarket(msg)

	case Cancel:
		b.cancel(msg.ID)
	}
	return nil
}

// ---------------- Matching ---------------- //

func (b *Book) matchLimitBuy(o *Order, ts int64) {
	for o.Qty > 0 {
		best := b.asks.Min()
		if best == nil || best.Price > o.Price {
			break
		}
		b.fillAtLevel(o, best, b.asks, ts)
	}
	if o.Qty > 0 {
		b.rest(o)
	}
}

func (b *Book) matchLimitSell(o *Order, ts int64) {
	for o.Qty > 0 {
		best := b.bids.Max()
		if best == nil || best.Price < o.Price {
			break
		}
		b.fillAtLevel(o, best, b.bids, ts)
	}
	if o.Qty > 0 {
		b.rest(o)
	}
}

// sweepMarket fills a transient order against the opposite side with
// no price guard. The order never rests and never enters the locator;
// unfilled quantity is dropped.
func (b *Book) sweepMarket(msg Msg) {
	o := Order{ID: msg.ID, Side: msg.Side, Qty: msg.Qty}
	if o.Side == Buy {
		for o.Qty > 0 {
			best := b.asks.Min()
			if best == nil {
				break
			}
			b.fillAtLevel(&o, best, b.asks, msg.TS)
		}
	} else {
		for o.Qty > 0 {
			best := b.bids.Max()
			if best == nil {
				break
			}
			b.fillAtLevel(&o, best, b.bids, msg.TS)
		}
	}
}

// fillAtLevel trades incoming against the level's FIFO queue until one
// of them is exhausted. A partially filled head keeps its position.
// The level is erased from its side the instant it empties.
func (b *Book) fillAtLevel(incoming *Order, level *PriceLevel, side *levelTree, ts int64) {
	for incoming.Qty > 0 && !level.Empty() {
		resting := level.Front()

		fill := min(incoming.Qty, resting.Qty)
		before := resting.Qty
		incoming.Qty -= fill
		resting.Qty -= fill
		level.UpdateQty(before, resting.Qty)
		b.recordTrade(incoming, resting, fill, ts)

		if resting.Qty == 0 {
			delete(b.locator, resting.ID)
			level.Remove(resting)
		} else {
			// incoming exhausted; head keeps time priority
			return
		}
	}
	if level.Empty() {
		b.eraseLevel(side, level.Price)
	}
}

func (b *Book) rest(o *Order) {
	if o.Side == Buy {
		b.bids.Upsert(o.Price).Enqueue(o)
	} else {
		b.asks.Upsert(o.Price).Enqueue(o)
	}
	b.locator[o.ID] = o
}

func (b *Book) cancel(id uint64) {
	o, ok := b.locator[id]
	if !ok {
		return
	}
	side := b.bids
	if o.Side == Sell {
		side = b.asks
	}
	if level := side.Find(o.Price); level != nil {
		level.Remove(o)
		if level.Empty() {
			b.eraseLevel(side, o.Price)
		}
	}
	delete(b.locator, id)
}

func (b *Book) eraseLevel(side *levelTree, price int64) {
	side.Delete(price)
}

func (b *Book) recordTrade(incoming, resting *Order, qty, ts int64) {
	b.totalTrades++
	if !b.recording {
		return
	}
	t := Trade{Price: resting.Price, Qty: qty, TS: ts}
	if incoming.Side == Buy {
		t.BuyID = incoming.ID
		t.SellID = resting.ID
	} else {
		t.BuyID = resting.ID
		t.SellID = incoming.ID
	}
	b.trades = append(b.trades, t)
}

// ---------------- Read-only queries ---------------- //

// BestBid returns the greatest bid price, or 0 if the side is empty.
func (b *Book) BestBid() int64 {
	if lvl := b.bids.Max(); lvl != nil {
		return lvl.Price
	}
	return 0
}

// BestAsk returns the least ask price, or 0 if the side is empty.
func (b *Book) BestAsk() int64 {
	if lvl := b.asks.Min(); lvl != nil {
		return lvl.Price
	}
	return 0
}

func (b *Book) BestBidQty() int64 {
	if lvl := b.bids.Max(); lvl != nil {
		return lvl.TotalQty()
	}
	return 0
}

func (b *Book) BestAskQty() int64 {
	if lvl := b.asks.Min(); lvl != nil {
		return lvl.TotalQty()
	}
	return 0
}

// TotalBidQty sums cached quantity over all bid levels.
func (b *Book) TotalBidQty() int64 {
	var total int64
	b.bids.Ascend(func(lvl *PriceLevel) bool {
		total += lvl.TotalQty()
		return true
	})
	return total
}

// TotalAskQty sums cached quantity over all ask levels.
func (b *Book) TotalAskQty() int64 {
	var total int64
	b.asks.Ascend(func(lvl *PriceLevel) bool {
		total += lvl.TotalQty()
		return true
	})
	return total
}

// Trades returns the journal. The slice is owned by the book and valid
// until the next Process or ClearTrades call.
func (b *Book) Trades() []Trade { return b.trades }

// ClearTrades empties the journal without touching book state or the
// trade counter.
func (b *Book) ClearTrades() { b.trades = b.trades[:0] }

func (b *Book) TotalMessages() uint64 { return b.totalMessages }
func (b *Book) TotalTrades() uint64   { return b.totalTrades }

// BidLevels / AskLevels report the live level counts.
func (b *Book) BidLevels() int { return b.bids.Size() }
func (b *Book) AskLevels() int { return b.asks.Size() }

// BidsDescend walks bid levels best (greatest price) first.
func (b *Book) BidsDescend(fn func(*PriceLevel) bool) { b.bids.Descend(fn) }

// AsksAscend walks ask levels best (least price) first.
func (b *Book) AsksAscend(fn func(*PriceLevel) bool) { b.asks.Ascend(fn) }

// Locate returns the resting order with the given id, or nil.
func (b *Book) Locate(id uint64) *Order { return b.locator[id] }
