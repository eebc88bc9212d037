package sim

// event is one scheduled vehicle transition, keyed by its absolute fire
// time relative to the start of the enclosing Advance call. Because a
// vehicle only ever has one pending NextStatusTime, it has at most one
// entry in the heap at a time; Simulator.Advance rebuilds the heap after
// every micro-step instead of popping fired entries. This is the
// container/heap priority queue
// SPEC_FULL.md §4.5 grounds on the teacher's driver/batch.go eventPQ,
// generalized from a wall-clock arrival queue to a virtual-time one.
type event struct {
	carNum int
	fireAt float64
}

type eventHeap []event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].carNum < h[j].carNum // deterministic tie-break, ascending car_num
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
