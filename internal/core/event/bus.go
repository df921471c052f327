package event

import "reflect"

// Bus is a two-generation event queue. Producers Emit into the next
// generation; consumers read the current generation with Current. Rotate
// promotes next to current once per driver iteration.
type Bus struct {
	current map[reflect.Type][]any
	next    map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		current: make(map[reflect.Type][]any),
		next:    make(map[reflect.Type][]any),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the next generation.
func Emit[T any](b *Bus, event T) {
	t := keyOf[T]()
	b.next[t] = append(b.next[t], event)
}

// Current returns the current-generation events of type T in insertion order.
func Current[T any](b *Bus) []T {
	raw := b.current[keyOf[T]()]
	out := make([]T, 0, len(raw))
	for _, ev := range raw {
		out = append(out, ev.(T))
	}
	return out
}

// Pending returns how many events wait in the next generation.
func (b *Bus) Pending() int {
	n := 0
	for _, evs := range b.next {
		n += len(evs)
	}
	return n
}

// Idle reports whether both generations are empty.
func (b *Bus) Idle() bool {
	for _, evs := range b.current {
		if len(evs) > 0 {
			return false
		}
	}
	return b.Pending() == 0
}

// Rotate replaces the current generation with next and clears next.
func (b *Bus) Rotate() {
	b.current, b.next = b.next, b.current
	for k := range b.next {
		b.next[k] = b.next[k][:0]
	}
}
