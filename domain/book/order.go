package book

// Order is a live resting or in-flight order. Storage comes from the
// OrderPool; an order is linked into at most one price level via its
// intrusive prev/next pointers. There is no back reference to the
// level: the price and side are enough to find it again.
type Order struct {
	ID    uint64
	Price int64
	Qty   int64 // lots remaining; 0 means filled
	Side  Side

	next *Order
	prev *Order
}

// Next returns the order behind o in its level's FIFO queue.
func (o *Order) Next() *Order { return o.next }
