package system

import (
	"fmt"

	"github.com/dicebrawl/server/internal/component"
	"github.com/dicebrawl/server/internal/core/event"
	coresys "github.com/dicebrawl/server/internal/core/system"
	"github.com/dicebrawl/server/internal/world"
	"go.uber.org/zap"
)

// DraftingSystem prepares the active combatant's pool at the start of its
// turn and consumes DraftDie events. Phase 0 (Draft), Drafting phase only.
type DraftingSystem struct {
	comps *world.Components
	state *world.State
	bus   *event.Bus
	log   *world.CombatLog
	zlog  *zap.Logger
}

func NewDraftingSystem(comps *world.Components, state *world.State, bus *event.Bus, log *world.CombatLog, zlog *zap.Logger) *DraftingSystem {
	return &DraftingSystem{comps: comps, state: state, bus: bus, log: log, zlog: zlog}
}

func (s *DraftingSystem) Phase() coresys.Phase { return coresys.PhaseDraft }

func (s *DraftingSystem) Update() error {
	if s.state.Phase.Kind != world.PhaseDrafting {
		return nil
	}
	active := s.state.Active()
	pool, ok := s.comps.DicePools.Get(active)
	if !ok {
		return nil
	}

	// Leftovers from the previous turn go back to the pool. Prepped heavy
	// attack dice stay banked until discharged.
	if len(pool.Rolled) > 0 {
		component.ClearAll(pool.Rolled)
		pool.Available = append(pool.Available, pool.Rolled...)
		pool.Rolled = pool.Rolled[:0]
	}
	if def, ok := s.comps.Defenders.Get(active); ok && len(def.PreppedDefense) > 0 {
		component.ClearAll(def.PreppedDefense)
		pool.Available = append(pool.Available, def.PreppedDefense...)
		def.PreppedDefense = def.PreppedDefense[:0]
	}

	for _, ev := range event.Current[world.DraftDie](s.bus) {
		if len(pool.Drafted) >= pool.MaxDraft {
			continue
		}
		if ev.Index < 0 || ev.Index >= len(pool.Available) {
			s.zlog.Debug("draft index out of range",
				zap.String("combatant", s.comps.NameOf(active)),
				zap.Int("index", ev.Index),
				zap.Int("available", len(pool.Available)),
			)
			continue
		}
		die := pool.Available[ev.Index]
		pool.Available = append(pool.Available[:ev.Index], pool.Available[ev.Index+1:]...)
		pool.Drafted = append(pool.Drafted, die)
		s.log.Add(fmt.Sprintf("%s drafted %s", s.comps.NameOf(active), die))
	}
	return nil
}
