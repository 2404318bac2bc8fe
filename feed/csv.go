// Package feed parses the line-oriented CSV message stream consumed
// by the benchmark driver. The engine itself never sees raw text.
package feed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tyr/domain/book"
)

// Reader parses `ts_ns,MsgType,Side,OrderId,Price,Qty` lines.
// Comment (#) and blank lines are skipped, one optional header line is
// tolerated, and fields are trimmed. Malformed lines are skipped with
// a warning; unknown enum values reject the line rather than
// defaulting.
type Reader struct {
	log *zap.Logger
}

func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{log: log}
}

func (r *Reader) ReadFile(path string) ([]book.Msg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	defer f.Close()
	return r.Read(f)
}

func (r *Reader) Read(src io.Reader) ([]book.Msg, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	msgs := make([]book.Msg, 0, 1<<16)
	lineNo := 0
	sawData := false

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if !sawData && isHeader(line) {
			sawData = true
			continue
		}
		sawData = true

		msg, err := parseLine(line)
		if err != nil {
			r.log.Warn("skipping malformed line",
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return msgs, fmt.Errorf("feed: scan: %w", err)
	}
	return msgs, nil
}

func isHeader(line string) bool {
	return strings.Contains(line, "ts_ns") || strings.Contains(line, "MsgType")
}

func parseLine(line string) (book.Msg, error) {
	var msg book.Msg

	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return msg, fmt.Errorf("want 6 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return msg, fmt.Errorf("ts_ns %q: %w", fields[0], err)
	}
	typ, err := parseMsgType(fields[1])
	if err != nil {
		return msg, err
	}
	side, err := parseSide(fields[2])
	if err != nil {
		return msg, err
	}
	id, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return msg, fmt.Errorf("order id %q: %w", fields[3], err)
	}
	price, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return msg, fmt.Errorf("price %q: %w", fields[4], err)
	}
	qty, err := strconv.ParseInt(fields[5], 10, 64)
	if err != nil {
		return msg, fmt.Errorf("qty %q: %w", fields[5], err)
	}

	msg = book.Msg{Type: typ, Side: side, ID: id, Price: price, Qty: qty, TS: ts}
	return msg, nil
}

func parseMsgType(s string) (book.MsgType, error) {
	switch s {
	case "NewLimit":
		return book.NewLimit, nil
	case "NewMarket":
		return book.NewMarket, nil
	case "Cancel":
		return book.Cancel, nil
	default:
		return 0, fmt.Errorf("unknown message type %q", s)
	}
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "Buy":
		return book.Buy, nil
	case "Sell":
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}
