package world

// DraftDie asks the drafting system to move the die at Index of the active
// combatant's available dice into drafted.
type DraftDie struct {
	Index int
}
