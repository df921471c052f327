package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a dense component store indexed by entity index. Occupancy is a
// bitset; the stored generation rejects stale handles.
//
// Pointers returned by Get stay valid until the next Set on a new index.
type Store[T any] struct {
	items    []T
	gens     []uint32
	occupied []uint64
	count    int
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{}
}

func (s *Store[T]) Set(id EntityID, c T) {
	idx := int(id.Index())
	if idx >= len(s.items) {
		grow := idx + 1 - len(s.items)
		s.items = append(s.items, make([]T, grow)...)
		s.gens = append(s.gens, make([]uint32, grow)...)
	}
	for idx/64 >= len(s.occupied) {
		s.occupied = append(s.occupied, 0)
	}
	if !s.bit(idx) {
		s.count++
	}
	s.items[idx] = c
	s.gens[idx] = id.Generation()
	s.occupied[idx/64] |= 1 << (uint(idx) % 64)
}

// Get returns a mutable pointer to the component of id.
func (s *Store[T]) Get(id EntityID) (*T, bool) {
	idx := int(id.Index())
	if !s.bit(idx) || s.gens[idx] != id.Generation() {
		return nil, false
	}
	return &s.items[idx], true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Store[T]) Remove(id EntityID) {
	idx := int(id.Index())
	if !s.bit(idx) || s.gens[idx] != id.Generation() {
		return
	}
	var zero T
	s.items[idx] = zero
	s.occupied[idx/64] &^= 1 << (uint(idx) % 64)
	s.count--
}

func (s *Store[T]) Len() int {
	return s.count
}

func (s *Store[T]) bit(idx int) bool {
	if idx < 0 || idx/64 >= len(s.occupied) {
		return false
	}
	return s.occupied[idx/64]&(1<<(uint(idx)%64)) != 0
}
