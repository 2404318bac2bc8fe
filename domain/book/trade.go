package book

// Trade is one execution. Price is always the resting (passive)
// order's price; TS is the timestamp of the incoming message that
// triggered the match.
type Trade struct {
	BuyID  uint64
	SellID uint64
	Price  int64
	Qty    int64
	TS     int64
}
