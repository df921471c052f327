package system

import (
	"fmt"
	"sort"
)

// Runner executes systems in phase order each iteration.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every system once. The first failing system aborts the tick.
func (r *Runner) Tick() error {
	r.ensureSorted()
	for _, s := range r.systems {
		if err := s.Update(); err != nil {
			return fmt.Errorf("%s system: %w", s.Phase(), err)
		}
	}
	return nil
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
