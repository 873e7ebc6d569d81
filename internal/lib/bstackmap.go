package lib

// BoundStackMap keeps the last capacity items by key, the oldest is evicted first
type BoundStackMap[K comparable, T any] struct {
	capacity int
	keys     []K
	items    map[K]T
}

func NewBoundStackMap[K comparable, T any](capacity int) *BoundStackMap[K, T] {
	return &BoundStackMap[K, T]{
		capacity: capacity,
		keys:     make([]K, 0, capacity),
		items:    make(map[K]T, capacity),
	}
}

// Push adds the item, pushing an existing key replaces the item and keeps its position
func (bs *BoundStackMap[K, T]) Push(key K, item T) {
	if _, ok := bs.items[key]; ok {
		bs.items[key] = item
		return
	}
	if len(bs.keys) == bs.capacity {
		delete(bs.items, bs.keys[0])
		bs.keys = bs.keys[1:]
	}
	bs.keys = append(bs.keys, key)
	bs.items[key] = item
}

func (bs *BoundStackMap[K, T]) Get(key K) (T, bool) {
	item, ok := bs.items[key]
	return item, ok
}

func (bs *BoundStackMap[K, T]) Count() int {
	return len(bs.keys)
}

// Values returns the items oldest first
func (bs *BoundStackMap[K, T]) Values() []T {
	values := make([]T, 0, len(bs.keys))
	for _, key := range bs.keys {
		values = append(values, bs.items[key])
	}
	return values
}
