package deque

import (
	"freettes/model"
)

// 数组大小基数
const base = 8

// ArrDeque is a ring buffer. start is the index of the oldest element.
type ArrDeque struct {
	arr      []model.Snapshot
	start    int
	size     int
	capacity int
}

// 工厂方法，容量向上取整到 base 的倍数
func NewArrDeque(capacity int) *ArrDeque {
	if capacity < 1 {
		capacity = 1
	}
	if remainder := capacity % base; remainder != 0 {
		capacity = capacity - remainder + base
	}
	return &ArrDeque{
		arr:      make([]model.Snapshot, capacity),
		capacity: capacity,
	}
}

func (ad *ArrDeque) Size() int {
	return ad.size
}

func (ad *ArrDeque) Capacity() int {
	return ad.capacity
}

func (ad *ArrDeque) index(i int) int {
	return (ad.start + i) % ad.capacity
}

func (ad *ArrDeque) Get(i int) *model.Snapshot {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	return &ad.arr[ad.index(i)]
}

func (ad *ArrDeque) Find(t float64) (*model.Snapshot, bool) {
	for i := 0; i < ad.size; i++ {
		if s := &ad.arr[ad.index(i)]; s.T == t {
			return s, true
		}
	}
	return nil, false
}

func (ad *ArrDeque) Traverse(f func(i int, item *model.Snapshot)) {
	for i := 0; i < ad.size; i++ {
		f(i, &ad.arr[ad.index(i)])
	}
}

func (ad *ArrDeque) AddLast(item model.Snapshot) {
	if ad.IsFull() {
		panic("deque is full")
	}
	ad.arr[ad.index(ad.size)] = item
	ad.size++
}

func (ad *ArrDeque) RemoveLast() {
	if ad.IsEmpty() {
		return
	}
	ad.arr[ad.index(ad.size-1)] = model.Snapshot{}
	ad.size--
}

func (ad *ArrDeque) AddFirst(item model.Snapshot) {
	if ad.IsFull() {
		panic("deque is full")
	}
	ad.start = (ad.start - 1 + ad.capacity) % ad.capacity
	ad.arr[ad.start] = item
	ad.size++
}

func (ad *ArrDeque) RemoveFirst() {
	if ad.IsEmpty() {
		return
	}
	ad.arr[ad.start] = model.Snapshot{}
	ad.start = (ad.start + 1) % ad.capacity
	ad.size--
}

func (ad *ArrDeque) Push(item model.Snapshot) {
	if ad.IsFull() {
		ad.RemoveFirst()
	}
	ad.AddLast(item)
}

func (ad *ArrDeque) IsFull() bool {
	return ad.size == ad.capacity
}

func (ad *ArrDeque) IsEmpty() bool {
	return ad.size == 0
}
