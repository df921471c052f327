package message

import (
	"errors"
	"testing"

	"github.com/dicebrawl/server/internal/component"
	"github.com/dicebrawl/server/internal/world"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		frame string
		want  ClientMessage
	}{
		{`{"FinishDrafting":[0,2]}`, ClientMessage{Kind: FinishDrafting, Indices: []int{0, 2}}},
		{`{"FinishDrafting":[]}`, ClientMessage{Kind: FinishDrafting, Indices: []int{}}},
		{`{"ChooseAction":1}`, ClientMessage{Kind: ChooseAction, Index: 1}},
		{`{"ChooseTarget":2}`, ClientMessage{Kind: ChooseTarget, Index: 2}},
	}
	for _, tt := range tests {
		got, err := Decode([]byte(tt.frame))
		if err != nil {
			t.Fatalf("Decode(%s): %v", tt.frame, err)
		}
		if got.Kind != tt.want.Kind || got.Index != tt.want.Index || len(got.Indices) != len(tt.want.Indices) {
			t.Fatalf("Decode(%s) = %+v, want %+v", tt.frame, got, tt.want)
		}
		for i := range got.Indices {
			if got.Indices[i] != tt.want.Indices[i] {
				t.Fatalf("Decode(%s) = %+v, want %+v", tt.frame, got, tt.want)
			}
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, frame := range []string{
		``,
		`not json`,
		`[]`,
		`{}`,
		`"FinishDrafting"`,
		`{"FinishDrafting":null}`,
		`{"FinishDrafting":"0"}`,
		`{"FinishDrafting":[-1]}`,
		`{"FinishDrafting":[1.5]}`,
		`{"ChooseAction":-1}`,
		`{"ChooseTarget":[1]}`,
		`{"Revert":[]}`,
		`{"FinishDrafting":[0],"ChooseAction":0}`,
	} {
		if _, err := Decode([]byte(frame)); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformedMessage", frame, err)
		}
	}
}

func TestEncodeNewState(t *testing.T) {
	snap := world.Snapshot{
		ClientPhase: world.DraftDicePhase([]component.Die{component.NewDie(component.Red, 6)}, 2),
		Combatants:  []world.SnapshotCombatant{{Name: "Player", HP: 100}},
	}
	b, err := EncodeNewState(snap)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"NewState":{"client_phase":{"DraftDice":[[{"color":"Red","sides":6,"rolled_value":null}],2]},"combatants":[{"name":"Player","hp":100}],"combat_log":[]}}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}

	back, err := DecodeNewState(b)
	if err != nil {
		t.Fatal(err)
	}
	if back.ClientPhase.Kind != world.ClientDraftDice || back.ClientPhase.Max != 2 || back.Combatants[0].Name != "Player" {
		t.Fatalf("decoded = %+v", back)
	}
}

func TestEncodeWaiting(t *testing.T) {
	b, err := EncodeNewState(world.Snapshot{ClientPhase: world.WaitingPhase()})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"NewState":{"client_phase":"Waiting","combatants":[],"combat_log":[]}}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}
