package component

// Combatant capability components. Pure data; systems own every mutation.

type Named struct {
	Name string
}

// Health never goes below zero.
type Health struct {
	HP int
}

// LightAttacker marks an entity that can make light attacks.
type LightAttacker struct{}

// HeavyAttacker holds dice banked for a later heavy attack. They persist
// across the owner's turns until discharged.
type HeavyAttacker struct {
	PreppedAttack []Die
}

// Defender holds dice committed to defense. They return to the pool when the
// owner's next drafting phase starts.
type Defender struct {
	PreppedDefense []Die
}

// DicePool partitions a combatant's dice. Drafted never exceeds MaxDraft.
type DicePool struct {
	Available []Die
	Drafted   []Die
	Rolled    []Die
	MaxDraft  int
}
