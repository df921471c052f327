package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/dicebrawl/server/internal/component"
	"gopkg.in/yaml.v3"
)

// CombatantTemplate describes one combatant of the starting roster.
type CombatantTemplate struct {
	Name          string   `yaml:"name"`
	HP            int      `yaml:"hp"`
	LightAttacker bool     `yaml:"light_attacker"`
	HeavyAttacker bool     `yaml:"heavy_attacker"`
	Defender      bool     `yaml:"defender"`
	MaxDraft      int      `yaml:"max_draft"`
	Dice          []string `yaml:"dice"` // e.g. "blue6", "red4"
}

// ErrEmptyRoster is returned for a roster file with no combatants.
var ErrEmptyRoster = errors.New("roster has no combatants")

// ErrNoDice is returned for a combatant without dice; it could never
// finish a drafting turn.
var ErrNoDice = errors.New("combatant has no dice")

// LoadRoster loads a roster YAML file (a list of CombatantTemplate).
func LoadRoster(path string) ([]CombatantTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var roster []CombatantTemplate
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if err := ValidateRoster(roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// ValidateRoster checks every template can be built into a combatant.
func ValidateRoster(roster []CombatantTemplate) error {
	if len(roster) == 0 {
		return ErrEmptyRoster
	}
	for i, t := range roster {
		if t.Name == "" {
			return fmt.Errorf("roster[%d]: missing name", i)
		}
		if t.HP < 0 {
			return fmt.Errorf("roster[%d] %s: negative hp", i, t.Name)
		}
		if t.MaxDraft < 1 {
			return fmt.Errorf("roster[%d] %s: max_draft must be at least 1", i, t.Name)
		}
		if len(t.Dice) == 0 {
			return fmt.Errorf("roster[%d] %s: %w", i, t.Name, ErrNoDice)
		}
		if _, err := t.ParseDice(); err != nil {
			return fmt.Errorf("roster[%d] %s: %w", i, t.Name, err)
		}
	}
	return nil
}

// ParseDice returns the template's dice in configured order.
func (t CombatantTemplate) ParseDice() ([]component.Die, error) {
	dice := make([]component.Die, 0, len(t.Dice))
	for _, s := range t.Dice {
		d, err := component.ParseDie(s)
		if err != nil {
			return nil, err
		}
		dice = append(dice, d)
	}
	return dice, nil
}

// DefaultRoster is the stock encounter: the player against two goblins.
func DefaultRoster() []CombatantTemplate {
	return []CombatantTemplate{
		{
			Name:          "Player",
			HP:            100,
			LightAttacker: true,
			HeavyAttacker: true,
			Defender:      true,
			MaxDraft:      2,
			Dice:          []string{"blue6", "red6", "yellow6", "red6"},
		},
		{
			Name:          "Red Goblin",
			HP:            50,
			LightAttacker: true,
			Defender:      true,
			MaxDraft:      2,
			Dice:          []string{"red4", "red4"},
		},
		{
			Name:          "Blue Goblin",
			HP:            50,
			LightAttacker: true,
			Defender:      true,
			MaxDraft:      2,
			Dice:          []string{"blue4", "blue4"},
		},
	}
}
