// Package book implements a single-instrument, price-time priority
// limit-order-book matching engine. It maintains two red-black trees
// for bid and ask price levels, intrusive FIFO order queues with O(1)
// cancel, and a segmented order pool so the hot path performs no heap
// allocation in steady state.
//
// The engine is strictly single-writer: one Book must be driven from
// one goroutine, and every Process call runs to completion before the
// next message is accepted.
package book
