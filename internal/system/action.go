package system

import (
	"fmt"

	"github.com/dicebrawl/server/internal/component"
	"github.com/dicebrawl/server/internal/core/ecs"
	coresys "github.com/dicebrawl/server/internal/core/system"
	"github.com/dicebrawl/server/internal/world"
	"go.uber.org/zap"
)

// DamageContext is the input to a damage calculation.
type DamageContext struct {
	Kind     world.ActionKind
	Dice     []component.Die // rolled dice committed to the attack
	TargetHP int
}

// DamageFunc computes the damage of an attack. Negative results count as 0.
type DamageFunc func(DamageContext) int

// SumDamage is the stock formula: the sum of the committed faces.
// Prepped defense is not consulted.
func SumDamage(ctx DamageContext) int {
	return component.SumRolled(ctx.Dice)
}

// ActionSystem builds the action menu and resolves chosen actions.
// Phase 2 (Action), runs in every phase.
type ActionSystem struct {
	comps  *world.Components
	state  *world.State
	log    *world.CombatLog
	damage DamageFunc
	zlog   *zap.Logger
}

func NewActionSystem(comps *world.Components, state *world.State, log *world.CombatLog, damage DamageFunc, zlog *zap.Logger) *ActionSystem {
	if damage == nil {
		damage = SumDamage
	}
	return &ActionSystem{comps: comps, state: state, log: log, damage: damage, zlog: zlog}
}

func (s *ActionSystem) Phase() coresys.Phase { return coresys.PhaseAction }

func (s *ActionSystem) Update() error {
	switch s.state.Phase.Kind {
	case world.PhaseSelectAction:
		if len(s.state.Phase.Menu) == 0 {
			s.state.Phase = world.SelectActionPhase(s.Menu(s.state.Active()))
		}
	case world.PhaseAction:
		if s.resolve(s.state.Active(), s.state.Phase.Action) {
			s.state.EndTurn()
		}
	}
	return nil
}

// Menu lists the actions id can take, probing capabilities in a fixed order.
func (s *ActionSystem) Menu(id ecs.EntityID) []world.MenuEntry {
	var menu []world.MenuEntry
	if s.comps.LightAttackers.Has(id) {
		menu = append(menu, world.MenuEntry{Label: "Light Attack", Action: world.CombatAction{Kind: world.LightAttack}})
	}
	if heavy, ok := s.comps.HeavyAttackers.Get(id); ok {
		if len(heavy.PreppedAttack) == 0 {
			menu = append(menu, world.MenuEntry{Label: "Prep Heavy Atk", Action: world.CombatAction{Kind: world.PrepHeavyAttack}})
		} else {
			menu = append(menu, world.MenuEntry{Label: "Heavy Attack", Action: world.CombatAction{Kind: world.HeavyAttack}})
		}
	}
	if s.comps.Defenders.Has(id) {
		menu = append(menu, world.MenuEntry{Label: "Defend", Action: world.CombatAction{Kind: world.Defend}})
	}
	return menu
}

// resolve applies a. It reports false when the action cannot resolve yet
// (no target bound) or the actor lacks a required capability.
func (s *ActionSystem) resolve(actor ecs.EntityID, a world.CombatAction) bool {
	if a.Kind.Targeted() && !a.HasTarget {
		return false
	}
	name := s.comps.NameOf(actor)
	pool, hasPool := s.comps.DicePools.Get(actor)

	switch a.Kind {
	case world.LightAttack:
		health, ok := s.comps.Health.Get(a.Target)
		if !ok || !hasPool {
			s.missing(actor, a)
			return false
		}
		dmg := s.hit(health, DamageContext{Kind: a.Kind, Dice: pool.Rolled, TargetHP: health.HP})
		s.log.Add(fmt.Sprintf("%s light attack did %d damage to %s", name, dmg, s.comps.NameOf(a.Target)))

	case world.PrepHeavyAttack:
		heavy, ok := s.comps.HeavyAttackers.Get(actor)
		if !ok || !hasPool {
			s.missing(actor, a)
			return false
		}
		heavy.PreppedAttack = append(heavy.PreppedAttack, pool.Rolled...)
		pool.Rolled = pool.Rolled[:0]
		s.log.Add(fmt.Sprintf("%s prepped for heavy attack", name))

	case world.HeavyAttack:
		heavy, ok := s.comps.HeavyAttackers.Get(actor)
		health, hasHealth := s.comps.Health.Get(a.Target)
		if !ok || !hasPool || !hasHealth {
			s.missing(actor, a)
			return false
		}
		pool.Rolled = append(pool.Rolled, heavy.PreppedAttack...)
		heavy.PreppedAttack = heavy.PreppedAttack[:0]
		dmg := s.hit(health, DamageContext{Kind: a.Kind, Dice: pool.Rolled, TargetHP: health.HP})
		s.log.Add(fmt.Sprintf("%s heavy attack did %d damage to %s", name, dmg, s.comps.NameOf(a.Target)))

	case world.Defend:
		def, ok := s.comps.Defenders.Get(actor)
		if !ok || !hasPool {
			s.missing(actor, a)
			return false
		}
		def.PreppedDefense = append(def.PreppedDefense, pool.Rolled...)
		pool.Rolled = pool.Rolled[:0]
		s.log.Add(fmt.Sprintf("%s prepped for defense", name))

	default:
		return false
	}
	return true
}

// hit applies damage with hp clamped at zero and returns the damage dealt
// as computed, before clamping.
func (s *ActionSystem) hit(health *component.Health, ctx DamageContext) int {
	dmg := s.damage(ctx)
	if dmg < 0 {
		dmg = 0
	}
	health.HP -= dmg
	if health.HP < 0 {
		health.HP = 0
	}
	return dmg
}

func (s *ActionSystem) missing(actor ecs.EntityID, a world.CombatAction) {
	s.zlog.Debug("action skipped: missing capability",
		zap.String("combatant", s.comps.NameOf(actor)),
		zap.Stringer("action", a.Kind),
	)
}
