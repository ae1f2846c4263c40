// SPDX-License-Identifier: ISC

// Package messagebus queues decoded chain objects between a
// connection's dispatch loop and whatever consumer the embedding
// program registers, so a slow consumer cannot back-pressure the
// socket read loop that produced the message (§6).
package messagebus

import "github.com/coreward/listenerd/counter"

const defaultQueueSize = 1000

// Message is one published item; From names the topic ("key_block",
// "txs") so a single consumer loop can multiplex several Bus values.
type Message struct {
	From string
	Item interface{}
}

// Bus is a bounded, non-blocking fan-out queue. A full Bus drops the
// newest message rather than blocking the sender.
type Bus struct {
	queue   chan Message
	dropped counter.Counter
}

// New creates a Bus with room for size queued messages.
func New(size int) *Bus {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Bus{queue: make(chan Message, size)}
}

// Send publishes item without blocking. It reports false, and counts
// the drop, if the queue is full.
func (b *Bus) Send(from string, item interface{}) bool {
	select {
	case b.queue <- Message{From: from, Item: item}:
		return true
	default:
		b.dropped.Increment()
		return false
	}
}

// Chan is the consumer side of the queue.
func (b *Bus) Chan() <-chan Message {
	return b.queue
}

// Dropped returns the lifetime count of messages discarded because the
// queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Uint64()
}
