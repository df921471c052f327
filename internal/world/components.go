package world

import (
	"github.com/dicebrawl/server/internal/component"
	"github.com/dicebrawl/server/internal/core/ecs"
)

// Components holds one store per capability component, all registered with
// the owning ecs.World.
type Components struct {
	Named          *ecs.Store[component.Named]
	Health         *ecs.Store[component.Health]
	LightAttackers *ecs.Store[component.LightAttacker]
	HeavyAttackers *ecs.Store[component.HeavyAttacker]
	Defenders      *ecs.Store[component.Defender]
	DicePools      *ecs.Store[component.DicePool]
}

func NewComponents(w *ecs.World) *Components {
	c := &Components{
		Named:          ecs.NewStore[component.Named](),
		Health:         ecs.NewStore[component.Health](),
		LightAttackers: ecs.NewStore[component.LightAttacker](),
		HeavyAttackers: ecs.NewStore[component.HeavyAttacker](),
		Defenders:      ecs.NewStore[component.Defender](),
		DicePools:      ecs.NewStore[component.DicePool](),
	}
	r := w.Registry()
	r.Register(c.Named)
	r.Register(c.Health)
	r.Register(c.LightAttackers)
	r.Register(c.HeavyAttackers)
	r.Register(c.Defenders)
	r.Register(c.DicePools)
	return c
}

// NameOf returns the combatant's name, or "?" for unnamed entities.
func (c *Components) NameOf(id ecs.EntityID) string {
	if n, ok := c.Named.Get(id); ok {
		return n.Name
	}
	return "?"
}
