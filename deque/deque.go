// Package deque holds recent temperature profiles in a bounded double ended
// queue backed by one array, so that traversal stays cache friendly.
package deque

import "freettes/model"

type Deque interface {
	// 队列的长度
	Size() int

	// Get returns the snapshot at index i, 0 being the oldest.
	Get(i int) *model.Snapshot

	// Find returns the snapshot taken at elapsed time t.
	Find(t float64) (*model.Snapshot, bool)

	// 正向遍历
	Traverse(f func(i int, item *model.Snapshot))

	AddLast(item model.Snapshot)
	RemoveLast()
	AddFirst(item model.Snapshot)
	RemoveFirst()

	// Push appends and drops the oldest snapshot when the queue is full.
	Push(item model.Snapshot)

	IsFull() bool
	IsEmpty() bool
}
