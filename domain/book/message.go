package book

type MsgType uint8
type Side uint8

const (
	NewLimit MsgType = iota
	NewMarket
	Cancel
)

const (
	Buy Side = iota
	Sell
)

func (t MsgType) String() string {
	switch t {
	case NewLimit:
		return "NewLimit"
	case NewMarket:
		return "NewMarket"
	case Cancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

// Msg is one pre-parsed inbound message. TS is an opaque nanosecond
// timestamp carried through to any trades the message produces.
type Msg struct {
	Type  MsgType
	Side  Side // ignored for Cancel
	ID    uint64
	Price int64 // ticks; NewLimit only
	Qty   int64 // lots; 0 for Cancel
	TS    int64
}
