package world

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dicebrawl/server/internal/component"
)

// ClientPhaseKind is the client-visible phase.
type ClientPhaseKind int

const (
	ClientWaiting ClientPhaseKind = iota
	ClientDraftDice
	ClientSelectAction
	ClientSelectTarget
)

var clientPhaseTags = [...]string{"Waiting", "DraftDice", "SelectAction", "SelectTarget"}

// ClientAction is the client-visible name of an action.
type ClientAction int

const (
	ClientLightAttack ClientAction = iota
	ClientPrepHeavyAttack
	ClientHeavyAttack
	ClientDefend
)

var clientActionNames = [...]string{"LightAttack", "PrepHeavyAttack", "HeavyAttack", "Defend"}

func (a ClientAction) MarshalText() ([]byte, error) {
	if a < ClientLightAttack || a > ClientDefend {
		return nil, fmt.Errorf("invalid client action %d", int(a))
	}
	return []byte(clientActionNames[a]), nil
}

func (a *ClientAction) UnmarshalText(b []byte) error {
	for i, name := range clientActionNames {
		if string(b) == name {
			*a = ClientAction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown client action %q", b)
}

// ClientPhase is what the client should render. DraftDice carries the
// available dice and the draft cap; SelectAction the rolled dice and the
// actions; SelectTarget the target names.
type ClientPhase struct {
	Kind    ClientPhaseKind
	Dice    []component.Die
	Max     int
	Actions []ClientAction
	Targets []string
}

func WaitingPhase() ClientPhase { return ClientPhase{Kind: ClientWaiting} }

func DraftDicePhase(dice []component.Die, max int) ClientPhase {
	return ClientPhase{Kind: ClientDraftDice, Dice: dice, Max: max}
}

// MarshalJSON encodes the phase as an externally tagged variant:
// "Waiting", {"DraftDice":[dice,max]}, {"SelectAction":[dice,actions]},
// {"SelectTarget":[names]}.
func (p ClientPhase) MarshalJSON() ([]byte, error) {
	dice := p.Dice
	if dice == nil {
		dice = []component.Die{}
	}
	var payload any
	switch p.Kind {
	case ClientWaiting:
		return json.Marshal(clientPhaseTags[ClientWaiting])
	case ClientDraftDice:
		payload = []any{dice, p.Max}
	case ClientSelectAction:
		actions := p.Actions
		if actions == nil {
			actions = []ClientAction{}
		}
		payload = []any{dice, actions}
	case ClientSelectTarget:
		targets := p.Targets
		if targets == nil {
			targets = []string{}
		}
		payload = targets
	default:
		return nil, fmt.Errorf("invalid client phase %d", int(p.Kind))
	}
	return json.Marshal(map[string]any{clientPhaseTags[p.Kind]: payload})
}

func (p *ClientPhase) UnmarshalJSON(b []byte) error {
	var unit string
	if err := json.Unmarshal(b, &unit); err == nil {
		if unit != clientPhaseTags[ClientWaiting] {
			return fmt.Errorf("unknown client phase %q", unit)
		}
		*p = WaitingPhase()
		return nil
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(b, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("client phase: want one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "DraftDice":
			var tuple []json.RawMessage
			if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) != 2 {
				return fmt.Errorf("DraftDice: want [dice, max]")
			}
			out := ClientPhase{Kind: ClientDraftDice}
			if err := json.Unmarshal(tuple[0], &out.Dice); err != nil {
				return fmt.Errorf("DraftDice dice: %w", err)
			}
			if err := json.Unmarshal(tuple[1], &out.Max); err != nil {
				return fmt.Errorf("DraftDice max: %w", err)
			}
			*p = out
		case "SelectAction":
			var tuple []json.RawMessage
			if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) != 2 {
				return fmt.Errorf("SelectAction: want [dice, actions]")
			}
			out := ClientPhase{Kind: ClientSelectAction}
			if err := json.Unmarshal(tuple[0], &out.Dice); err != nil {
				return fmt.Errorf("SelectAction dice: %w", err)
			}
			if err := json.Unmarshal(tuple[1], &out.Actions); err != nil {
				return fmt.Errorf("SelectAction actions: %w", err)
			}
			*p = out
		case "SelectTarget":
			out := ClientPhase{Kind: ClientSelectTarget}
			if err := json.Unmarshal(raw, &out.Targets); err != nil {
				return fmt.Errorf("SelectTarget: %w", err)
			}
			*p = out
		default:
			return fmt.Errorf("unknown client phase %q", tag)
		}
	}
	return nil
}

// SnapshotCombatant is one row of the status table.
type SnapshotCombatant struct {
	Name string `json:"name"`
	HP   int    `json:"hp"`
}

// Snapshot is the materialized client view. Values handed out are copies;
// nothing shares memory with the engine.
type Snapshot struct {
	ClientPhase ClientPhase         `json:"client_phase"`
	Combatants  []SnapshotCombatant `json:"combatants"`
	CombatLog   []string            `json:"combat_log"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		ClientPhase: s.ClientPhase,
		Combatants:  append([]SnapshotCombatant{}, s.Combatants...),
		CombatLog:   append([]string{}, s.CombatLog...),
	}
	out.ClientPhase.Dice = append([]component.Die{}, s.ClientPhase.Dice...)
	out.ClientPhase.Actions = append([]ClientAction{}, s.ClientPhase.Actions...)
	out.ClientPhase.Targets = append([]string{}, s.ClientPhase.Targets...)
	return out
}

// Encode returns the stable serialization used both on the wire and for
// the quiescence check.
func (s Snapshot) Encode() ([]byte, error) {
	if s.Combatants == nil {
		s.Combatants = []SnapshotCombatant{}
	}
	if s.CombatLog == nil {
		s.CombatLog = []string{}
	}
	return json.Marshal(s)
}

// Equal reports whether two snapshots serialize identically.
func (s Snapshot) Equal(other Snapshot) bool {
	a, errA := s.Encode()
	b, errB := other.Encode()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}
