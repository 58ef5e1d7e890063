package explore

import "container/heap"

// entry is a frontier candidate: a move to try from an explored node.
type entry struct {
	parent   string
	move     string
	priority float64
	depth    int
	cp       *int
	played   bool
	seq      uint64
}

// frontier is a max-heap on priority. Equal priorities pop in insertion
// order.
type frontier struct {
	items entries
	next  uint64
}

func (f *frontier) push(e *entry) {
	e.seq = f.next
	f.next++
	heap.Push(&f.items, e)
}

func (f *frontier) pop() *entry {
	return heap.Pop(&f.items).(*entry)
}

func (f *frontier) peek() *entry {
	return f.items[0]
}

func (f *frontier) len() int {
	return len(f.items)
}

type entries []*entry

var _ heap.Interface = (*entries)(nil)

func (h entries) Len() int { return len(h) }

func (h entries) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entries) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entries) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *entries) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
