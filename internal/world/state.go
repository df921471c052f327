package world

import "github.com/dicebrawl/server/internal/core/ecs"

// PhaseKind enumerates the steps of one combatant's turn:
// Drafting → Roll → SelectAction → Action → (next combatant) Drafting.
type PhaseKind int

const (
	PhaseDrafting PhaseKind = iota
	PhaseRoll
	PhaseSelectAction
	PhaseAction
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseDrafting:
		return "Drafting"
	case PhaseRoll:
		return "Roll"
	case PhaseSelectAction:
		return "SelectAction"
	case PhaseAction:
		return "Action"
	}
	return "Unknown"
}

// Phase is the current step of the active combatant's turn. Menu is only
// meaningful for PhaseSelectAction and Action only for PhaseAction.
type Phase struct {
	Kind   PhaseKind
	Menu   []MenuEntry
	Action CombatAction
}

func DraftingPhase() Phase { return Phase{Kind: PhaseDrafting} }
func RollPhase() Phase     { return Phase{Kind: PhaseRoll} }

func SelectActionPhase(menu []MenuEntry) Phase {
	return Phase{Kind: PhaseSelectAction, Menu: menu}
}

func ActionPhase(a CombatAction) Phase {
	return Phase{Kind: PhaseAction, Action: a}
}

// MenuEntry is one selectable action with its display label.
type MenuEntry struct {
	Label  string
	Action CombatAction
}

// ActionKind enumerates combat actions.
type ActionKind int

const (
	LightAttack ActionKind = iota
	PrepHeavyAttack
	HeavyAttack
	Defend
)

func (k ActionKind) String() string {
	switch k {
	case LightAttack:
		return "LightAttack"
	case PrepHeavyAttack:
		return "PrepHeavyAttack"
	case HeavyAttack:
		return "HeavyAttack"
	case Defend:
		return "Defend"
	}
	return "Unknown"
}

// Targeted reports whether the action needs a target before it resolves.
func (k ActionKind) Targeted() bool {
	return k == LightAttack || k == HeavyAttack
}

// CombatAction is a chosen action. Targeted kinds stay unresolved until
// HasTarget is set.
type CombatAction struct {
	Kind      ActionKind
	Target    ecs.EntityID
	HasTarget bool
}

// WithTarget binds the action to a target.
func (a CombatAction) WithTarget(id ecs.EntityID) CombatAction {
	a.Target = id
	a.HasTarget = true
	return a
}

// State is the process-wide combat singleton. Accessed only while the
// session coordinator holds its lock.
type State struct {
	Combatants []ecs.EntityID
	Current    int
	Phase      Phase
	Snapshot   Snapshot
}

// NewState starts combat with the first combatant drafting.
func NewState(combatants []ecs.EntityID) *State {
	return &State{
		Combatants: combatants,
		Phase:      DraftingPhase(),
		Snapshot:   Snapshot{ClientPhase: WaitingPhase()},
	}
}

// Active returns the handle of the combatant whose turn it is.
func (s *State) Active() ecs.EntityID {
	return s.Combatants[s.Current]
}

// EndTurn hands the turn to the next combatant, wrapping at the end of the
// turn order.
func (s *State) EndTurn() {
	s.Phase = DraftingPhase()
	s.Current = (s.Current + 1) % len(s.Combatants)
}
