// rosterconv converts a combatant sheet (CSV) into a roster YAML file.
//
// Sheet columns: name, hp, abilities, max_draft, dice
//
//	Player,100,light heavy defend,2,blue6 red6 yellow6 red6
//
// With "-" as the sheet, the built-in roster is written instead.
//
// Usage:
//
//	go run ./cmd/rosterconv <sheet.csv|-> <output.yaml>
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dicebrawl/server/internal/data"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: rosterconv <sheet.csv|-> <output.yaml>")
		os.Exit(1)
	}

	var roster []data.CombatantTemplate
	if os.Args[1] == "-" {
		roster = data.DefaultRoster()
	} else {
		in, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		roster, err = readSheet(in)
		in.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if err := data.ValidateRoster(roster); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out, err := os.Create(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "# Roster — auto-generated by rosterconv (%d combatants)\n", len(roster))
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(roster); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	enc.Close()

	fmt.Printf("Wrote %d combatants to %s\n", len(roster), os.Args[2])
}

func readSheet(r io.Reader) ([]data.CombatantTemplate, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	var roster []data.CombatantTemplate
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return roster, nil
		}
		if err != nil {
			return nil, err
		}
		if n == 1 && strings.EqualFold(rec[0], "name") {
			continue // header
		}
		hp, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("record %d: hp: %w", n, err)
		}
		maxDraft, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("record %d: max_draft: %w", n, err)
		}
		t := data.CombatantTemplate{Name: rec[0], HP: hp, MaxDraft: maxDraft, Dice: strings.Fields(rec[4])}
		for _, a := range strings.Fields(rec[2]) {
			switch strings.ToLower(a) {
			case "light":
				t.LightAttacker = true
			case "heavy":
				t.HeavyAttacker = true
			case "defend":
				t.Defender = true
			default:
				return nil, fmt.Errorf("record %d: unknown ability %q", n, a)
			}
		}
		roster = append(roster, t)
	}
}
