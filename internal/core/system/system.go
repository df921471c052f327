package system

// Phase defines execution ordering within a single driver iteration.
type Phase int

const (
	PhaseDraft       Phase = iota // 0: turn cleanup + consume draft events
	PhaseRoll                     // 1: roll drafted dice
	PhaseAction                   // 2: populate menu, resolve actions
	PhaseMaterialize              // 3: build the client snapshot
	PhaseCleanup                  // 4: maintain the entity store
)

func (p Phase) String() string {
	switch p {
	case PhaseDraft:
		return "draft"
	case PhaseRoll:
		return "roll"
	case PhaseAction:
		return "action"
	case PhaseMaterialize:
		return "materialize"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every combat system implements. Systems never
// perform I/O.
type System interface {
	Phase() Phase
	Update() error
}
