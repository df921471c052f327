// Package engine owns the combat world and drives the phase systems to
// quiescence between external inputs.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/dicebrawl/server/internal/component"
	"github.com/dicebrawl/server/internal/core/ecs"
	"github.com/dicebrawl/server/internal/core/event"
	coresys "github.com/dicebrawl/server/internal/core/system"
	"github.com/dicebrawl/server/internal/data"
	"github.com/dicebrawl/server/internal/system"
	"github.com/dicebrawl/server/internal/world"
	"go.uber.org/zap"
)

// ErrNonConvergent means the driver hit its iteration budget without
// reaching quiescence. The session cannot continue.
var ErrNonConvergent = errors.New("engine did not reach quiescence")

// DefaultMaxIterations bounds one Stabilize call.
const DefaultMaxIterations = 64

// Options tune the engine. Zero values select defaults.
type Options struct {
	MaxIterations int
	LogCapacity   int
	Damage        system.DamageFunc
}

// Engine is the combat engine: entity store, combat state, event queue,
// combat log and the phase systems. Not safe for concurrent use; the
// session coordinator serializes access.
type Engine struct {
	world  *ecs.World
	comps  *world.Components
	state  *world.State
	bus    *event.Bus
	log    *world.CombatLog
	runner *coresys.Runner
	zlog   *zap.Logger

	maxIterations int
}

// New spawns the roster in turn order and registers the phase systems.
// Call Stabilize before reading the first snapshot.
func New(roster []data.CombatantTemplate, rng component.Roller, opts Options, zlog *zap.Logger) (*Engine, error) {
	if err := data.ValidateRoster(roster); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	w := ecs.NewWorld()
	comps := world.NewComponents(w)
	combatants := make([]ecs.EntityID, 0, len(roster))
	for _, t := range roster {
		id, err := spawn(w, comps, t)
		if err != nil {
			return nil, err
		}
		combatants = append(combatants, id)
	}

	e := &Engine{
		world:         w,
		comps:         comps,
		state:         world.NewState(combatants),
		bus:           event.NewBus(),
		log:           world.NewCombatLog(opts.LogCapacity),
		runner:        coresys.NewRunner(),
		zlog:          zlog,
		maxIterations: opts.MaxIterations,
	}
	e.runner.Register(system.NewDraftingSystem(comps, e.state, e.bus, e.log, zlog))
	e.runner.Register(system.NewRollingSystem(comps, e.state, e.log, rng))
	e.runner.Register(system.NewActionSystem(comps, e.state, e.log, opts.Damage, zlog))
	e.runner.Register(system.NewMaterializeSystem(comps, e.state, e.log))
	e.runner.Register(system.NewCleanupSystem(w))
	return e, nil
}

func spawn(w *ecs.World, comps *world.Components, t data.CombatantTemplate) (ecs.EntityID, error) {
	dice, err := t.ParseDice()
	if err != nil {
		return 0, fmt.Errorf("spawn %s: %w", t.Name, err)
	}
	id := w.CreateEntity()
	comps.Named.Set(id, component.Named{Name: t.Name})
	comps.Health.Set(id, component.Health{HP: t.HP})
	if t.LightAttacker {
		comps.LightAttackers.Set(id, component.LightAttacker{})
	}
	if t.HeavyAttacker {
		comps.HeavyAttackers.Set(id, component.HeavyAttacker{})
	}
	if t.Defender {
		comps.Defenders.Set(id, component.Defender{})
	}
	comps.DicePools.Set(id, component.DicePool{Available: dice, MaxDraft: t.MaxDraft})
	return id, nil
}

// Stabilize runs driver iterations (systems in phase order, then event
// rotation) until two consecutive snapshots serialize identically and no
// events are queued.
func (e *Engine) Stabilize() error {
	prev, err := e.state.Snapshot.Encode()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	for i := 1; i <= e.maxIterations; i++ {
		if err := e.runner.Tick(); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		e.bus.Rotate()

		cur, err := e.state.Snapshot.Encode()
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if bytes.Equal(prev, cur) && e.bus.Idle() {
			e.zlog.Debug("engine quiescent", zap.Int("iterations", i))
			return nil
		}
		prev = cur
	}
	return fmt.Errorf("%w after %d iterations", ErrNonConvergent, e.maxIterations)
}

// Snapshot returns a copy of the last materialized client view.
func (e *Engine) Snapshot() world.Snapshot {
	return e.state.Snapshot.Clone()
}

// DrainLog returns combat log lines added since the previous call.
func (e *Engine) DrainLog() []string {
	return e.log.Drain()
}

// State exposes the combat state for inspection.
func (e *Engine) State() *world.State { return e.state }

// Components exposes the component stores for inspection.
func (e *Engine) Components() *world.Components { return e.comps }

// SetPhase replaces the current phase. It does not run the systems.
func (e *Engine) SetPhase(p world.Phase) {
	e.state.Phase = p
}

// QueueDrafts emits one DraftDie per index, highest index first, so that
// each removal leaves the remaining indices valid.
func (e *Engine) QueueDrafts(indices []int) {
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, i := range sorted {
		event.Emit(e.bus, world.DraftDie{Index: i})
	}
}

// FinishDrafting applies a batch of draft choices made against one view of
// the active combatant's available dice, then rolls. A batch that drafts
// nothing leaves the combat unchanged, unless every die is banked in a
// prepped heavy attack. Ignored outside the Drafting phase.
func (e *Engine) FinishDrafting(indices []int) error {
	if e.state.Phase.Kind != world.PhaseDrafting {
		e.zlog.Debug("finish drafting ignored", zap.Stringer("phase", e.state.Phase.Kind))
		return nil
	}
	e.QueueDrafts(indices)
	if err := e.Stabilize(); err != nil {
		return err
	}
	active := e.state.Active()
	pool, ok := e.comps.DicePools.Get(active)
	if !ok {
		return nil
	}
	if len(pool.Drafted) == 0 && !e.onlyBanked(active, pool) {
		return nil
	}
	e.state.Phase = world.RollPhase()
	return e.Stabilize()
}

// onlyBanked reports whether every die id owns is banked in a prepped heavy
// attack. Such a turn rolls nothing and goes straight to the action menu so
// the bank can be discharged.
func (e *Engine) onlyBanked(id ecs.EntityID, pool *component.DicePool) bool {
	if len(pool.Available) > 0 {
		return false
	}
	heavy, ok := e.comps.HeavyAttackers.Get(id)
	return ok && len(heavy.PreppedAttack) > 0
}

// ChooseAction picks entry index of the action menu. Ignored outside the
// SelectAction phase or for an index not on the menu.
func (e *Engine) ChooseAction(index int) error {
	phase := e.state.Phase
	if phase.Kind != world.PhaseSelectAction || index < 0 || index >= len(phase.Menu) {
		e.zlog.Debug("choose action ignored", zap.Stringer("phase", phase.Kind), zap.Int("index", index))
		return nil
	}
	e.state.Phase = world.ActionPhase(phase.Menu[index].Action)
	return e.Stabilize()
}

// ChooseTarget binds the pending targeted action to the combatant at turn
// order index. The active combatant and entities without Health are not
// valid targets.
func (e *Engine) ChooseTarget(index int) error {
	phase := e.state.Phase
	if phase.Kind != world.PhaseAction || !phase.Action.Kind.Targeted() || phase.Action.HasTarget ||
		index < 0 || index >= len(e.state.Combatants) || index == e.state.Current {
		e.zlog.Debug("choose target ignored", zap.Stringer("phase", phase.Kind), zap.Int("index", index))
		return nil
	}
	target := e.state.Combatants[index]
	if !e.comps.Health.Has(target) {
		return nil
	}
	e.state.Phase = world.ActionPhase(phase.Action.WithTarget(target))
	return e.Stabilize()
}
