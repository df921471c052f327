package world

// DefaultLogCapacity is the number of lines a CombatLog keeps.
const DefaultLogCapacity = 10

// CombatLog is a bounded FIFO of human-readable combat lines. Add is the
// only mutator of the visible list; the oldest line is evicted on overflow.
type CombatLog struct {
	capacity int
	lines    []string
	pending  []string // added since the last Drain, unbounded
}

func NewCombatLog(capacity int) *CombatLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &CombatLog{
		capacity: capacity,
		lines:    make([]string, 0, capacity+1),
	}
}

func (l *CombatLog) Add(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) > l.capacity {
		l.lines = append(l.lines[:0], l.lines[1:]...)
	}
	l.pending = append(l.pending, line)
}

// Lines returns a copy of the visible lines, oldest first.
func (l *CombatLog) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Drain returns every line added since the previous Drain, including lines
// already evicted from the visible list.
func (l *CombatLog) Drain() []string {
	out := l.pending
	l.pending = nil
	return out
}
