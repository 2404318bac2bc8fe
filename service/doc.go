// Package service is the only write entry point into the engine. It
// owns the Book, pumps all messages through one goroutine, and carries
// newly journaled trades into the delivery path (outbox, tick
// publisher). The engine core never imports any of this.
package service
