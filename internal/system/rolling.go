package system

import (
	"fmt"
	"strings"

	"github.com/dicebrawl/server/internal/component"
	coresys "github.com/dicebrawl/server/internal/core/system"
	"github.com/dicebrawl/server/internal/world"
)

// RollingSystem rolls the active combatant's drafted dice and opens the
// action menu. Phase 1 (Roll), Roll phase only.
type RollingSystem struct {
	comps *world.Components
	state *world.State
	log   *world.CombatLog
	rng   component.Roller
}

func NewRollingSystem(comps *world.Components, state *world.State, log *world.CombatLog, rng component.Roller) *RollingSystem {
	return &RollingSystem{comps: comps, state: state, log: log, rng: rng}
}

func (s *RollingSystem) Phase() coresys.Phase { return coresys.PhaseRoll }

func (s *RollingSystem) Update() error {
	if s.state.Phase.Kind != world.PhaseRoll {
		return nil
	}
	active := s.state.Active()
	pool, ok := s.comps.DicePools.Get(active)
	if !ok {
		return nil
	}

	for _, die := range pool.Drafted {
		pool.Rolled = append(pool.Rolled, die.Roll(s.rng))
	}
	pool.Drafted = pool.Drafted[:0]
	s.state.Phase = world.SelectActionPhase(nil)

	faces := make([]string, len(pool.Rolled))
	for i, die := range pool.Rolled {
		faces[i] = die.String()
	}
	s.log.Add(fmt.Sprintf("%s rolled [%s]", s.comps.NameOf(active), strings.Join(faces, ",")))
	return nil
}
