package system

import (
	"errors"
	"fmt"

	"github.com/dicebrawl/server/internal/component"
	coresys "github.com/dicebrawl/server/internal/core/system"
	"github.com/dicebrawl/server/internal/world"
)

// ErrMissingDicePool is returned when the drafting combatant has no pool.
var ErrMissingDicePool = errors.New("active combatant has no dice pool")

// MaterializeSystem builds the client snapshot from authoritative state.
// Phase 3 (Materialize).
//
// Only the Drafting phase has a client-side rendering; every other phase
// materializes as Waiting.
type MaterializeSystem struct {
	comps *world.Components
	state *world.State
	log   *world.CombatLog
}

func NewMaterializeSystem(comps *world.Components, state *world.State, log *world.CombatLog) *MaterializeSystem {
	return &MaterializeSystem{comps: comps, state: state, log: log}
}

func (s *MaterializeSystem) Phase() coresys.Phase { return coresys.PhaseMaterialize }

func (s *MaterializeSystem) Update() error {
	active := s.state.Active()

	phase := world.WaitingPhase()
	if s.state.Phase.Kind == world.PhaseDrafting {
		pool, ok := s.comps.DicePools.Get(active)
		if !ok {
			return fmt.Errorf("materialize %s: %w", s.comps.NameOf(active), ErrMissingDicePool)
		}
		phase = world.DraftDicePhase(append(make([]component.Die, 0, len(pool.Available)), pool.Available...), pool.MaxDraft)
	}

	combatants := make([]world.SnapshotCombatant, 0, len(s.state.Combatants))
	for _, id := range s.state.Combatants {
		named, ok := s.comps.Named.Get(id)
		if !ok {
			continue
		}
		health, ok := s.comps.Health.Get(id)
		if !ok {
			continue
		}
		combatants = append(combatants, world.SnapshotCombatant{Name: named.Name, HP: health.HP})
	}

	s.state.Snapshot = world.Snapshot{
		ClientPhase: phase,
		Combatants:  combatants,
		CombatLog:   s.log.Lines(),
	}
	return nil
}
