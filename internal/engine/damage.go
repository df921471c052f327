package engine

import (
	"github.com/dicebrawl/server/internal/scripting"
	"github.com/dicebrawl/server/internal/system"
	"github.com/dicebrawl/server/internal/world"
)

// ScriptedDamage routes damage calculation through the Lua calc_damage
// function.
func ScriptedDamage(lua *scripting.Engine) system.DamageFunc {
	return func(ctx system.DamageContext) int {
		kind := "light"
		if ctx.Kind == world.HeavyAttack {
			kind = "heavy"
		}
		dice := make([]scripting.DieValue, len(ctx.Dice))
		for i, d := range ctx.Dice {
			dice[i] = scripting.DieValue{Color: d.Color.String(), Sides: d.Sides, Value: d.Rolled}
		}
		return lua.CalcDamage(scripting.DamageContext{Kind: kind, Dice: dice, TargetHP: ctx.TargetHP})
	}
}
