// Package outbox persists journaled trades for at-least-once
// downstream delivery. Book state is never restored from it; it only
// carries executions out of the process.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"tyr/domain/book"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Record is one outbox entry: the trade plus its delivery state.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Trade       book.Trade
}

var ErrNotFound = errors.New("outbox: record not found")

const keyPrefix = "trade/"

// value encoding: [state:1][retries:4][lastAttempt:8]
//
//	[buyID:8][sellID:8][price:8][qty:8][ts:8]
const recordLen = 1 + 4 + 8 + 5*8

func encodeRecord(r Record) []byte {
	buf := make([]byte, recordLen)
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint64(buf[13:21], r.Trade.BuyID)
	binary.BigEndian.PutUint64(buf[21:29], r.Trade.SellID)
	binary.BigEndian.PutUint64(buf[29:37], uint64(r.Trade.Price))
	binary.BigEndian.PutUint64(buf[37:45], uint64(r.Trade.Qty))
	binary.BigEndian.PutUint64(buf[45:53], uint64(r.Trade.TS))
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) != recordLen {
		return Record{}, fmt.Errorf("outbox: invalid record length %d", len(b))
	}
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Trade: book.Trade{
			BuyID:  binary.BigEndian.Uint64(b[13:21]),
			SellID: binary.BigEndian.Uint64(b[21:29]),
			Price:  int64(binary.BigEndian.Uint64(b[29:37])),
			Qty:    int64(binary.BigEndian.Uint64(b[37:45])),
			TS:     int64(binary.BigEndian.Uint64(b[45:53])),
		},
	}, nil
}

// Outbox is a pebble-backed trade outbox keyed by journal sequence.
type Outbox struct {
	db      *pebble.DB
	nextSeq uint64
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}
	o := &Outbox{db: db, nextSeq: 1}
	if err := o.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

func (o *Outbox) Close() error { return o.db.Close() }

func (o *Outbox) recoverSeq() error {
	iter, err := o.db.NewIter(scanBounds())
	if err != nil {
		return fmt.Errorf("outbox: recover: %w", err)
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		o.nextSeq = seq + 1
	}
	return iter.Error()
}

// Append stores a trade in state NEW and returns its sequence.
func (o *Outbox) Append(t book.Trade) (uint64, error) {
	seq := o.nextSeq
	rec := Record{Seq: seq, State: StateNew, Trade: t}
	if err := o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync); err != nil {
		return 0, fmt.Errorf("outbox: append seq %d: %w", seq, err)
	}
	o.nextSeq = seq + 1
	return seq, nil
}

// Get returns the record at seq.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("outbox: get seq %d: %w", seq, err)
	}
	defer closer.Close()

	rec, err := decodeRecord(val)
	if err != nil {
		return Record{}, err
	}
	rec.Seq = seq
	return rec, nil
}

// MarkSent transitions a record to SENT and bumps its retry count.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, StateSent)
}

// MarkAcked transitions a record to ACKED.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, StateAcked)
}

func (o *Outbox) transition(seq uint64, to State) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = to
	if to == StateSent {
		rec.Retries++
	}
	rec.LastAttempt = time.Now().UnixNano()
	if err := o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync); err != nil {
		return fmt.Errorf("outbox: mark %s seq %d: %w", to, seq, err)
	}
	return nil
}

// ScanPending visits every record not yet ACKED, in sequence order.
func (o *Outbox) ScanPending(fn func(*Record) error) error {
	iter, err := o.db.NewIter(scanBounds())
	if err != nil {
		return fmt.Errorf("outbox: scan: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec.Seq = seq
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// TruncateAcked deletes ACKED records up to and including maxSeq.
func (o *Outbox) TruncateAcked(maxSeq uint64) error {
	iter, err := o.db.NewIter(scanBounds())
	if err != nil {
		return fmt.Errorf("outbox: truncate: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if seq > maxSeq {
			break
		}
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != StateAcked {
			continue
		}
		if err := o.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return fmt.Errorf("outbox: delete seq %d: %w", seq, err)
		}
	}
	return iter.Error()
}

func scanBounds() *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	}
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	if _, err := fmt.Sscanf(string(b[len(keyPrefix):]), "%d", &seq); err != nil {
		return 0, fmt.Errorf("outbox: bad key %q: %w", b, err)
	}
	return seq, nil
}
