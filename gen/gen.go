// Package gen produces synthetic message datasets in the feed CSV
// format. Generation is deterministic for a given seed so benchmark
// runs are reproducible.
package gen

import (
	"bufio"
	"io"
	"strconv"
)

type Config struct {
	Messages  int64
	Seed      uint64
	BasePrice int64 // center of the simulated price band, in ticks
	MaxActive int   // bound on the tracked resting-order table
	StartTS   int64 // first ts_ns value
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Messages <= 0 {
		out.Messages = 10_000_000
	}
	if out.Seed == 0 {
		out.Seed = 42
	}
	if out.BasePrice == 0 {
		out.BasePrice = 100_000
	}
	if out.MaxActive <= 0 {
		out.MaxActive = 100_000
	}
	if out.StartTS == 0 {
		out.StartTS = 1_693_526_400_000_000_000
	}
	return out
}

type Generator struct {
	cfg    Config
	rng    xoshiro256
	active []uint64 // ids of limits that are plausibly still resting
	nextID uint64
}

func New(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		cfg:    cfg,
		rng:    newXoshiro256(cfg.Seed),
		active: make([]uint64, 0, cfg.MaxActive),
		nextID: 1,
	}
}

// WriteTo emits the full dataset, header included, and returns the
// number of messages written.
func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	if _, err := bw.WriteString("ts_ns,MsgType,Side,OrderId,Price,Qty\n"); err != nil {
		return 0, err
	}

	ts := g.cfg.StartTS
	buf := make([]byte, 0, 64)

	var written int64
	for ; written < g.cfg.Messages; written++ {
		ts += int64(100 + g.rng.next()%900)

		buf = buf[:0]
		buf = strconv.AppendInt(buf, ts, 10)
		buf = append(buf, ',')

		roll := g.rng.next() % 100
		switch {
		case roll < 10 && len(g.active) > 0:
			buf = g.appendCancel(buf)
		case roll < 15:
			buf = g.appendMarket(buf)
		default:
			buf = g.appendLimit(buf)
		}
		buf = append(buf, '\n')

		if _, err := bw.Write(buf); err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

func (g *Generator) appendLimit(buf []byte) []byte {
	id := g.nextID
	g.nextID++

	side := "Buy"
	if g.rng.next()&1 == 1 {
		side = "Sell"
	}
	// prices cluster in a band of +/-1000 ticks around base
	price := g.cfg.BasePrice + int64(g.rng.next()%2001) - 1000
	qty := int64(1 + g.rng.next()%1000)

	g.track(id)

	buf = append(buf, "NewLimit,"...)
	buf = append(buf, side...)
	buf = append(buf, ',')
	buf = strconv.AppendUint(buf, id, 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, price, 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, qty, 10)
	return buf
}

func (g *Generator) appendMarket(buf []byte) []byte {
	id := g.nextID
	g.nextID++

	side := "Buy"
	if g.rng.next()&1 == 1 {
		side = "Sell"
	}
	qty := int64(1 + g.rng.next()%500)

	buf = append(buf, "NewMarket,"...)
	buf = append(buf, side...)
	buf = append(buf, ',')
	buf = strconv.AppendUint(buf, id, 10)
	buf = append(buf, ",0,"...)
	buf = strconv.AppendInt(buf, qty, 10)
	return buf
}

func (g *Generator) appendCancel(buf []byte) []byte {
	i := int(g.rng.next() % uint64(len(g.active)))
	id := g.active[i]

	// swap-remove; the order is spent either way
	g.active[i] = g.active[len(g.active)-1]
	g.active = g.active[:len(g.active)-1]

	buf = append(buf, "Cancel,Buy,"...)
	buf = strconv.AppendUint(buf, id, 10)
	buf = append(buf, ",0,0"...)
	return buf
}

func (g *Generator) track(id uint64) {
	if len(g.active) == g.cfg.MaxActive {
		// overwrite a random slot; the displaced id is simply
		// never canceled
		g.active[g.rng.next()%uint64(len(g.active))] = id
		return
	}
	g.active = append(g.active, id)
}

// xoshiro256 is the xoshiro256** generator; splitmix64 seeds the
// state so any uint64 seed is usable.
type xoshiro256 struct {
	s [4]uint64
}

func newXoshiro256(seed uint64) xoshiro256 {
	var x xoshiro256
	sm := seed
	for i := range x.s {
		sm += 0x9E3779B97F4A7C15
		z := sm
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		x.s[i] = z ^ (z >> 31)
	}
	return x
}

func (x *xoshiro256) next() uint64 {
	rotl := func(v uint64, k uint) uint64 { return (v << k) | (v >> (64 - k)) }

	result := rotl(x.s[1]*5, 7) * 9
	t := x.s[1] << 17
	x.s[2] ^= x.s[0]
	x.s[3] ^= x.s[1]
	x.s[1] ^= x.s[2]
	x.s[0] ^= x.s[3]
	x.s[2] ^= t
	x.s[3] = rotl(x.s[3], 45)
	return result
}
