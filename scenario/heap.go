package scenario

import "container/heap"

// scheduled pairs an Event with the sequence number it was pushed in, so
// ties on TimeSeconds break in input order.
type scheduled struct {
	event Event
	seq   int
}

// eventHeap is a container/heap.Interface min-heap ordered by TimeSeconds,
// ties broken by seq ascending.
type eventHeap []scheduled

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].event.TimeSeconds != h[j].event.TimeSeconds {
		return h[i].event.TimeSeconds < h[j].event.TimeSeconds
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(scheduled))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// buildHeap pushes every enabled event, synthesizing a paired release event
// (value 0, same target) for each non-persisted event that carries a
// persist duration. minTime filters out anything at or before that mark,
// which Jump uses to keep only future events.
func buildHeap(events []Event, minTime float64) *eventHeap {
	h := &eventHeap{}
	heap.Init(h)
	seq := 0
	for _, evt := range events {
		if !evt.Enabled {
			continue
		}
		if evt.TimeSeconds > minTime {
			heap.Push(h, scheduled{event: evt, seq: seq})
			seq++
		}
		if !evt.Persist && evt.PersistDurationMs > 0 {
			release := Event{
				ID:          evt.ID,
				TimeSeconds: evt.TimeSeconds + float64(evt.PersistDurationMs)/1000.0,
				Target:      evt.Target,
				Value:       0,
				Persist:     true,
				Enabled:     true,
				Note:        "release: " + evt.Note,
			}
			if release.TimeSeconds > minTime {
				heap.Push(h, scheduled{event: release, seq: seq})
				seq++
			}
		}
	}
	return h
}
