package component

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is a die's affinity.
type Color int

const (
	Colorless Color = iota
	Red
	Green
	Blue
	Yellow
)

var colorNames = [...]string{"Colorless", "Red", "Green", "Blue", "Yellow"}

// short forms used in combat log lines
var colorAbbrev = [...]string{"non", "red", "grn", "blu", "yel"}

func (c Color) String() string {
	if c < Colorless || c > Yellow {
		return "Color(" + strconv.Itoa(int(c)) + ")"
	}
	return colorNames[c]
}

func (c Color) MarshalText() ([]byte, error) {
	if c < Colorless || c > Yellow {
		return nil, fmt.Errorf("invalid color %d", int(c))
	}
	return []byte(colorNames[c]), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor accepts full names ("Blue") and log abbreviations ("blu"),
// case-insensitively.
func ParseColor(s string) (Color, error) {
	for i := range colorNames {
		if strings.EqualFold(s, colorNames[i]) || strings.EqualFold(s, colorAbbrev[i]) {
			return Color(i), nil
		}
	}
	return Colorless, fmt.Errorf("unknown die color %q", s)
}

// Die is a single die. Rolled is 0 while the die has no rolled face.
type Die struct {
	Color  Color
	Sides  int
	Rolled int
}

func NewDie(c Color, sides int) Die {
	return Die{Color: c, Sides: sides}
}

// IsRolled reports whether the die carries a rolled face.
func (d Die) IsRolled() bool { return d.Rolled != 0 }

// Clear drops the rolled face.
func (d *Die) Clear() { d.Rolled = 0 }

// Roller is a uniform integer source. Intn returns a value in [0, n).
type Roller interface {
	Intn(n int) int
}

// Roll returns a copy of d with a face drawn uniformly from [1, Sides].
func (d Die) Roll(r Roller) Die {
	d.Rolled = r.Intn(d.Sides) + 1
	return d
}

// String renders "red6" for an unrolled die and "red4 (6)" for a rolled one.
func (d Die) String() string {
	abbrev := "???"
	if d.Color >= Colorless && d.Color <= Yellow {
		abbrev = colorAbbrev[d.Color]
	}
	if d.IsRolled() {
		return fmt.Sprintf("%s%d (%d)", abbrev, d.Rolled, d.Sides)
	}
	return fmt.Sprintf("%s%d", abbrev, d.Sides)
}

// ParseDie parses the unrolled log form, e.g. "blue6" or "yel4".
func ParseDie(s string) (Die, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return Die{}, fmt.Errorf("parse die %q: want <color><sides>", s)
	}
	color, err := ParseColor(s[:i])
	if err != nil {
		return Die{}, fmt.Errorf("parse die %q: %w", s, err)
	}
	sides, err := strconv.Atoi(s[i:])
	if err != nil || sides < 1 {
		return Die{}, fmt.Errorf("parse die %q: sides must be a positive integer", s)
	}
	return NewDie(color, sides), nil
}

type wireDie struct {
	Color       Color `json:"color"`
	Sides       int   `json:"sides"`
	RolledValue *int  `json:"rolled_value"`
}

func (d Die) MarshalJSON() ([]byte, error) {
	w := wireDie{Color: d.Color, Sides: d.Sides}
	if d.IsRolled() {
		v := d.Rolled
		w.RolledValue = &v
	}
	return json.Marshal(w)
}

func (d *Die) UnmarshalJSON(b []byte) error {
	var w wireDie
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Die{Color: w.Color, Sides: w.Sides}
	if w.RolledValue != nil {
		d.Rolled = *w.RolledValue
	}
	return nil
}

// SumRolled adds the rolled faces of dice.
func SumRolled(dice []Die) int {
	total := 0
	for _, d := range dice {
		total += d.Rolled
	}
	return total
}

// ClearAll drops the rolled face of every die in place.
func ClearAll(dice []Die) {
	for i := range dice {
		dice[i].Clear()
	}
}
