package memtable

import (
	"cmp"
	"math/rand"
)

const (
	MaxLevel    = 16
	Probability = 0.5
)

// SkipListNode represents a node in the skip list
type SkipListNode[K cmp.Ordered, V any] struct {
	Key     K
	Value   V
	Forward []*SkipListNode[K, V]
}

// SkipList is an ordered map kept sorted by key
type SkipList[K cmp.Ordered, V any] struct {
	Head  *SkipListNode[K, V]
	Level int
	Size  int
}

// NewSkipList creates a new skip list
func NewSkipList[K cmp.Ordered, V any]() *SkipList[K, V] {
	head := &SkipListNode[K, V]{
		Forward: make([]*SkipListNode[K, V], MaxLevel),
	}
	return &SkipList[K, V]{
		Head:  head,
		Level: 0,
	}
}

// randomLevel generates a random level for a new node
func (sl *SkipList[K, V]) randomLevel() int {
	level := 0
	for rand.Float64() < Probability && level < MaxLevel-1 {
		level++
	}
	return level
}

// Insert adds or updates a key-value pair
func (sl *SkipList[K, V]) Insert(key K, value V) {
	update := make([]*SkipListNode[K, V], MaxLevel)
	current := sl.Head

	for i := sl.Level; i >= 0; i-- {
		for current.Forward[i] != nil && current.Forward[i].Key < key {
			current = current.Forward[i]
		}
		update[i] = current
	}

	current = current.Forward[0]
	if current != nil && current.Key == key {
		current.Value = value
		return
	}

	newLevel := sl.randomLevel()
	if newLevel > sl.Level {
		for i := sl.Level + 1; i <= newLevel; i++ {
			update[i] = sl.Head
		}
		sl.Level = newLevel
	}

	newNode := &SkipListNode[K, V]{
		Key:     key,
		Value:   value,
		Forward: make([]*SkipListNode[K, V], newLevel+1),
	}

	for i := 0; i <= newLevel; i++ {
		newNode.Forward[i] = update[i].Forward[i]
		update[i].Forward[i] = newNode
	}

	sl.Size++
}

// Search finds a value by key
func (sl *SkipList[K, V]) Search(key K) (V, bool) {
	current := sl.Head

	for i := sl.Level; i >= 0; i-- {
		for current.Forward[i] != nil && current.Forward[i].Key < key {
			current = current.Forward[i]
		}
	}

	current = current.Forward[0]
	if current != nil && current.Key == key {
		return current.Value, true
	}

	var zero V
	return zero, false
}

// First returns the smallest key
func (sl *SkipList[K, V]) First() (K, bool) {
	first := sl.Head.Forward[0]
	if first == nil {
		var zero K
		return zero, false
	}
	return first.Key, true
}

// Last returns the largest key
func (sl *SkipList[K, V]) Last() (K, bool) {
	current := sl.Head
	for i := sl.Level; i >= 0; i-- {
		for current.Forward[i] != nil {
			current = current.Forward[i]
		}
	}
	if current == sl.Head {
		var zero K
		return zero, false
	}
	return current.Key, true
}

// Len returns the number of elements in the skip list
func (sl *SkipList[K, V]) Len() int {
	return sl.Size
}

// Iterator returns a new skip list iterator
func (sl *SkipList[K, V]) Iterator() *SkipListIterator[K, V] {
	return &SkipListIterator[K, V]{
		current: sl.Head,
	}
}

// SkipListIterator walks the skip list in ascending key order
type SkipListIterator[K cmp.Ordered, V any] struct {
	current *SkipListNode[K, V]
}

// Next moves to the next element
func (it *SkipListIterator[K, V]) Next() bool {
	if it.current == nil {
		return false
	}
	it.current = it.current.Forward[0]
	return it.current != nil
}

// Key returns the current key
func (it *SkipListIterator[K, V]) Key() K {
	if it.current == nil {
		var zero K
		return zero
	}
	return it.current.Key
}

// Value returns the current value
func (it *SkipListIterator[K, V]) Value() V {
	if it.current == nil {
		var zero V
		return zero
	}
	return it.current.Value
}
