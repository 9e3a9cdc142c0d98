// Implements the itemQueue, which holds the items parked in an ItemStock.
// Items are enqueued on deposit and leave in arrival order.

package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// itemQueue is a FIFO queue of discrete items. In the simulator it models
// the parked contents of an ItemStock: trucks idling at a stockpile, pallets
// waiting on a dock.
type itemQueue struct {
	items []Item
}

// Enqueue adds an item to the back of the queue.
func (q *itemQueue) Enqueue(it Item) {
	q.items = append(q.items, it)
}

// EnqueueAll adds items to the back of the queue in slice order.
func (q *itemQueue) EnqueueAll(items []Item) {
	q.items = append(q.items, items...)
}

// String renders the queued item IDs oldest first, space separated.
// Journal records use this as the queue contents column.
func (q *itemQueue) String() string {
	var sb strings.Builder
	for i, it := range q.items {
		sb.WriteString(strconv.Itoa(it.ID))
		if i < len(q.items)-1 {
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

// Len returns the number of items in the queue.
func (q *itemQueue) Len() int {
	return len(q.items)
}

// Peek returns the item at the front of the queue without removing it.
// The second return is false if the queue is empty.
func (q *itemQueue) Peek() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Dequeue removes and returns the item at the front of the queue.
// The second return is false if the queue is empty.
func (q *itemQueue) Dequeue() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	it := q.items[0]
	q.items = q.items[1:]
	return it, true
}

// DequeueN removes and returns the n oldest items in arrival order.
// Callers check Len first; asking for more than the queue holds is a bug.
func (q *itemQueue) DequeueN(n int) []Item {
	if n > len(q.items) {
		panic(fmt.Sprintf("DequeueN: asked for %d of %d items", n, len(q.items)))
	}
	out := make([]Item, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	return out
}

// CargoTotal sums the cargo carried by every queued item.
func (q *itemQueue) CargoTotal() Amount {
	var total Amount
	for _, it := range q.items {
		total = total.Add(it.Cargo)
	}
	return total
}
