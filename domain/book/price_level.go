package book

// PriceLevel is the FIFO queue of all resting orders at one price on
// one side. Orders are linked intrusively; head is the oldest and
// trades first. cachedQty is maintained incrementally and always
// equals the sum of linked order quantities.
type PriceLevel struct {
	Price int64

	head  *Order
	tail  *Order
	count int

	cachedQty int64
}

// Enqueue appends o at the tail (lowest time priority).
func (l *PriceLevel) Enqueue(o *Order) {
	o.next = nil
	o.prev = l.tail
	if l.head == nil {
		l.head = o
	} else {
		l.tail.next = o
	}
	l.tail = o
	l.count++
	l.cachedQty += o.Qty
}

// Remove unlinks o wherever it sits in the queue. Safe when o is the
// only element. Subtracts o's current quantity from the cache, so a
// fully filled head (qty already 0) must have been accounted for via
// UpdateQty first.
func (l *PriceLevel) Remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	l.count--
	l.cachedQty -= o.Qty
}

// UpdateQty adjusts the cache after an order at this level changed
// quantity from old to new (partial or full fill of the head).
func (l *PriceLevel) UpdateQty(old, new int64) {
	l.cachedQty += new - old
}

// Front returns the oldest order without unlinking it.
func (l *PriceLevel) Front() *Order { return l.head }

func (l *PriceLevel) Empty() bool { return l.head == nil }

// Size returns the number of live orders linked at this level.
func (l *PriceLevel) Size() int { return l.count }

// TotalQty returns the cached sum of resting quantity at this level.
func (l *PriceLevel) TotalQty() int64 { return l.cachedQty }
