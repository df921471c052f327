package engine

import (
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dicebrawl/server/internal/component"
	"github.com/dicebrawl/server/internal/core/ecs"
	"github.com/dicebrawl/server/internal/data"
	"github.com/dicebrawl/server/internal/scripting"
	"github.com/dicebrawl/server/internal/world"
	"go.uber.org/zap"
)

// faceRoller rolls face (clamped to the die) on every die.
type faceRoller int

func (f faceRoller) Intn(n int) int {
	if int(f) > n {
		return n - 1
	}
	return int(f) - 1
}

func newEngine(t *testing.T, rng component.Roller) *Engine {
	t.Helper()
	e, err := New(data.DefaultRoster(), rng, Options{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Stabilize(); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *Engine) pool(t *testing.T, i int) *component.DicePool {
	t.Helper()
	p, ok := e.comps.DicePools.Get(e.state.Combatants[i])
	if !ok {
		t.Fatalf("combatant %d has no pool", i)
	}
	return p
}

func TestInitialSnapshot(t *testing.T) {
	e := newEngine(t, faceRoller(3))
	snap := e.Snapshot()

	want := []world.SnapshotCombatant{
		{Name: "Player", HP: 100},
		{Name: "Red Goblin", HP: 50},
		{Name: "Blue Goblin", HP: 50},
	}
	if len(snap.Combatants) != len(want) {
		t.Fatalf("combatants = %+v", snap.Combatants)
	}
	for i := range want {
		if snap.Combatants[i] != want[i] {
			t.Fatalf("combatants = %+v, want %+v", snap.Combatants, want)
		}
	}
	if snap.ClientPhase.Kind != world.ClientDraftDice || snap.ClientPhase.Max != 2 {
		t.Fatalf("client phase = %+v", snap.ClientPhase)
	}
	dice := []string{}
	for _, d := range snap.ClientPhase.Dice {
		dice = append(dice, d.String())
	}
	if strings.Join(dice, ",") != "blu6,red6,yel6,red6" {
		t.Fatalf("available = %v", dice)
	}
	if len(snap.CombatLog) != 0 {
		t.Fatalf("combat log = %v", snap.CombatLog)
	}
}

func TestDraftTwoDiceAndRoll(t *testing.T) {
	e := newEngine(t, faceRoller(4))
	if err := e.FinishDrafting([]int{0, 2}); err != nil {
		t.Fatal(err)
	}

	p := e.pool(t, 0)
	if len(p.Drafted) != 0 || len(p.Rolled) != 2 || len(p.Available) != 2 {
		t.Fatalf("pool = %+v", p)
	}
	if p.Rolled[0].Color != component.Yellow || p.Rolled[1].Color != component.Blue {
		t.Fatalf("rolled = %v, want yellow then blue (descending-index removal)", p.Rolled)
	}
	for _, d := range p.Rolled {
		if d.Rolled < 1 || d.Rolled > d.Sides {
			t.Fatalf("die %v rolled out of range", d)
		}
	}

	snap := e.Snapshot()
	if snap.ClientPhase.Kind != world.ClientWaiting {
		t.Fatalf("client phase = %v, want Waiting", snap.ClientPhase.Kind)
	}
	wantLog := []string{"Player drafted yel6", "Player drafted blu6", "Player rolled [yel4 (6),blu4 (6)]"}
	if strings.Join(snap.CombatLog, "|") != strings.Join(wantLog, "|") {
		t.Fatalf("log = %q", snap.CombatLog)
	}
	if e.state.Phase.Kind != world.PhaseSelectAction || len(e.state.Phase.Menu) != 3 {
		t.Fatalf("phase = %+v, want populated SelectAction", e.state.Phase)
	}
}

func TestPrepHeavyAttack(t *testing.T) {
	e := newEngine(t, faceRoller(5))
	if err := e.FinishDrafting([]int{1, 3}); err != nil {
		t.Fatal(err)
	}
	rolled := append([]component.Die(nil), e.pool(t, 0).Rolled...)

	e.SetPhase(world.ActionPhase(world.CombatAction{Kind: world.PrepHeavyAttack}))
	if err := e.Stabilize(); err != nil {
		t.Fatal(err)
	}
	heavy, _ := e.comps.HeavyAttackers.Get(e.state.Combatants[0])
	if len(heavy.PreppedAttack) != len(rolled) || heavy.PreppedAttack[0] != rolled[0] || heavy.PreppedAttack[1] != rolled[1] {
		t.Fatalf("prepped = %v, want %v", heavy.PreppedAttack, rolled)
	}
	if len(e.pool(t, 0).Rolled) != 0 {
		t.Fatal("rolled not emptied")
	}
	if e.state.Phase.Kind != world.PhaseDrafting || e.state.Current != 1 {
		t.Fatalf("phase=%v current=%d, want Drafting/1", e.state.Phase.Kind, e.state.Current)
	}
	snap := e.Snapshot()
	if snap.ClientPhase.Kind != world.ClientDraftDice || len(snap.ClientPhase.Dice) != 2 {
		t.Fatalf("goblin draft view = %+v", snap.ClientPhase)
	}
}

// playTurn drafts, rolls, and resolves a for the active combatant.
func playTurn(t *testing.T, e *Engine, drafts []int, a world.CombatAction) {
	t.Helper()
	if err := e.FinishDrafting(drafts); err != nil {
		t.Fatal(err)
	}
	e.SetPhase(world.ActionPhase(a))
	if err := e.Stabilize(); err != nil {
		t.Fatal(err)
	}
}

func TestHeavyAttackDischarge(t *testing.T) {
	e := newEngine(t, faceRoller(6))
	player, redGoblin := e.state.Combatants[0], e.state.Combatants[1]

	playTurn(t, e, []int{0, 1}, world.CombatAction{Kind: world.PrepHeavyAttack})
	playTurn(t, e, []int{0}, world.CombatAction{Kind: world.Defend})
	playTurn(t, e, []int{0}, world.CombatAction{Kind: world.Defend})

	// Player again: 2 prepped sixes + 2 new sixes.
	if err := e.FinishDrafting([]int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if labels := e.state.Phase.Menu; labels[1].Label != "Heavy Attack" {
		t.Fatalf("menu = %+v, want Heavy Attack offered", labels)
	}
	e.SetPhase(world.ActionPhase(world.CombatAction{Kind: world.HeavyAttack}.WithTarget(redGoblin)))
	if err := e.Stabilize(); err != nil {
		t.Fatal(err)
	}
	hp, _ := e.comps.Health.Get(redGoblin)
	if hp.HP != 50-24 {
		t.Fatalf("red goblin hp = %d, want 26", hp.HP)
	}
	heavy, _ := e.comps.HeavyAttackers.Get(player)
	if len(heavy.PreppedAttack) != 0 {
		t.Fatal("prepped attack not cleared")
	}
	lines := e.Snapshot().CombatLog
	if got := lines[len(lines)-1]; got != "Player heavy attack did 24 damage to Red Goblin" {
		t.Fatalf("log = %q", got)
	}
}

func TestDefendAndRecycle(t *testing.T) {
	e := newEngine(t, faceRoller(2))
	player := e.state.Combatants[0]
	playTurn(t, e, []int{3, 2}, world.CombatAction{Kind: world.Defend})
	def, _ := e.comps.Defenders.Get(player)
	if len(def.PreppedDefense) != 2 {
		t.Fatalf("prepped defense = %v", def.PreppedDefense)
	}

	playTurn(t, e, []int{0}, world.CombatAction{Kind: world.Defend})
	playTurn(t, e, []int{0}, world.CombatAction{Kind: world.Defend})

	if e.state.Current != 0 {
		t.Fatalf("current = %d, want wrap to 0", e.state.Current)
	}
	if len(def.PreppedDefense) != 0 {
		t.Fatal("defense dice not returned on drafting entry")
	}
	p := e.pool(t, 0)
	if len(p.Available) != 4 {
		t.Fatalf("available = %v, want all 4 dice back", p.Available)
	}
	for _, d := range p.Available {
		if d.IsRolled() {
			t.Fatalf("available die %v still rolled", d)
		}
	}
}

func TestIgnoredDraftsLeaveSnapshotUnchanged(t *testing.T) {
	for _, batch := range [][]int{nil, {}, {999}} {
		e := newEngine(t, faceRoller(1))
		before, _ := e.Snapshot().Encode()
		if err := e.FinishDrafting(batch); err != nil {
			t.Fatal(err)
		}
		after, _ := e.Snapshot().Encode()
		if string(before) != string(after) {
			t.Fatalf("batch %v changed the snapshot:\n%s\n%s", batch, before, after)
		}
		if e.state.Phase.Kind != world.PhaseDrafting {
			t.Fatalf("batch %v moved to %v", batch, e.state.Phase.Kind)
		}
	}
}

func TestExcessDraftsAreCapped(t *testing.T) {
	e := newEngine(t, faceRoller(1))
	if err := e.FinishDrafting([]int{0, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	p := e.pool(t, 0)
	if len(p.Rolled) != 2 {
		t.Fatalf("rolled %d dice, want cap 2", len(p.Rolled))
	}
	// indices 3 and 2 win: red6 then yel6
	if p.Rolled[0].Color != component.Red || p.Rolled[1].Color != component.Yellow {
		t.Fatalf("rolled = %v", p.Rolled)
	}
}

func TestLightAttackClampsAtZero(t *testing.T) {
	e := newEngine(t, faceRoller(6))
	goblin := e.state.Combatants[1]
	hp, _ := e.comps.Health.Get(goblin)
	hp.HP = 5
	playTurn(t, e, []int{0, 1}, world.CombatAction{Kind: world.LightAttack}.WithTarget(goblin))
	if hp.HP != 0 {
		t.Fatalf("hp = %d, want 0", hp.HP)
	}
	if got := e.Snapshot().Combatants[1].HP; got != 0 {
		t.Fatalf("snapshot hp = %d", got)
	}
}

func TestChooseActionAndTarget(t *testing.T) {
	e := newEngine(t, faceRoller(3))
	if err := e.FinishDrafting([]int{0}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseAction(9); err != nil || e.state.Phase.Kind != world.PhaseSelectAction {
		t.Fatalf("out-of-menu choice applied: %v %v", err, e.state.Phase.Kind)
	}
	if err := e.ChooseAction(0); err != nil {
		t.Fatal(err)
	}
	if e.state.Phase.Kind != world.PhaseAction || e.state.Phase.Action.HasTarget {
		t.Fatalf("phase = %+v, want untargeted light attack", e.state.Phase)
	}
	if err := e.ChooseTarget(0); err != nil || e.state.Current != 0 {
		t.Fatal("self-target must be ignored")
	}
	if err := e.ChooseTarget(2); err != nil {
		t.Fatal(err)
	}
	hp, _ := e.comps.Health.Get(e.state.Combatants[2])
	if hp.HP != 47 || e.state.Current != 1 {
		t.Fatalf("blue goblin hp=%d current=%d", hp.HP, e.state.Current)
	}
}

func TestNoRevertOperation(t *testing.T) {
	e := newEngine(t, faceRoller(3))
	if err := e.FinishDrafting([]int{0}); err != nil {
		t.Fatal(err)
	}
	// Drafting again while selecting an action is ignored: drafted dice
	// cannot be handed back.
	if err := e.FinishDrafting([]int{0}); err != nil {
		t.Fatal(err)
	}
	if p := e.pool(t, 0); len(p.Available) != 3 || len(p.Rolled) != 1 {
		t.Fatalf("pool = %+v", p)
	}
}

// A heavy attacker whose whole pool fits in one draft can bank every die.
// Its next turn skips drafting and goes straight to the menu.
func TestFullyBankedAttackerCanDischarge(t *testing.T) {
	roster := []data.CombatantTemplate{
		{Name: "Brute", HP: 40, HeavyAttacker: true, MaxDraft: 2, Dice: []string{"red6", "red6"}},
		{Name: "Goblin", HP: 50, LightAttacker: true, Defender: true, MaxDraft: 2, Dice: []string{"red4", "red4"}},
	}
	e, err := New(roster, faceRoller(6), Options{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Stabilize(); err != nil {
		t.Fatal(err)
	}
	brute, goblin := e.state.Combatants[0], e.state.Combatants[1]

	// Brute: draft both, Prep Heavy Atk.
	if err := e.FinishDrafting([]int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseAction(0); err != nil {
		t.Fatal(err)
	}
	// Goblin: draft one, Defend.
	if err := e.FinishDrafting([]int{0}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseAction(1); err != nil {
		t.Fatal(err)
	}
	if e.state.Current != 0 || len(e.pool(t, 0).Available) != 0 {
		t.Fatalf("current=%d available=%v, want Brute with an empty pool", e.state.Current, e.pool(t, 0).Available)
	}

	if err := e.FinishDrafting(nil); err != nil {
		t.Fatal(err)
	}
	menu := e.state.Phase.Menu
	if e.state.Phase.Kind != world.PhaseSelectAction || len(menu) != 1 || menu[0].Label != "Heavy Attack" {
		t.Fatalf("phase = %+v, want the Heavy Attack menu", e.state.Phase)
	}
	if err := e.ChooseAction(0); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseTarget(1); err != nil {
		t.Fatal(err)
	}

	hp, _ := e.comps.Health.Get(goblin)
	if hp.HP != 50-12 {
		t.Fatalf("goblin hp = %d, want 38", hp.HP)
	}
	heavy, _ := e.comps.HeavyAttackers.Get(brute)
	if len(heavy.PreppedAttack) != 0 || e.state.Current != 1 {
		t.Fatalf("prepped=%v current=%d", heavy.PreppedAttack, e.state.Current)
	}

	// Back to Brute: the discharged dice are draftable again.
	if err := e.FinishDrafting([]int{0}); err != nil {
		t.Fatal(err)
	}
	if err := e.ChooseAction(1); err != nil { // goblin defends
		t.Fatal(err)
	}
	if got := len(e.pool(t, 0).Available); got != 2 {
		t.Fatalf("brute available = %d, want 2", got)
	}
}

func TestNonConvergenceIsReported(t *testing.T) {
	e, err := New(data.DefaultRoster(), faceRoller(1), Options{MaxIterations: 1}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Stabilize(); !errors.Is(err, ErrNonConvergent) {
		t.Fatalf("err = %v, want ErrNonConvergent", err)
	}
}

func TestScriptedDamage(t *testing.T) {
	lua, err := scripting.NewEngine(filepath.Join("..", "..", "scripts"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer lua.Close()
	e, err := New(data.DefaultRoster(), faceRoller(5), Options{Damage: ScriptedDamage(lua)}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Stabilize(); err != nil {
		t.Fatal(err)
	}
	goblin := e.state.Combatants[1]
	playTurn(t, e, []int{0, 1}, world.CombatAction{Kind: world.LightAttack}.WithTarget(goblin))
	hp, _ := e.comps.Health.Get(goblin)
	if hp.HP != 40 {
		t.Fatalf("hp = %d, want 50-10", hp.HP)
	}
}

// TestRandomPlayKeepsInvariants drives random inputs and checks the pool
// invariants after every message.
func TestRandomPlayKeepsInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	e := newEngine(t, r)

	initial := map[ecs.EntityID]int{}
	for _, id := range e.state.Combatants {
		p, _ := e.comps.DicePools.Get(id)
		initial[id] = len(p.Available)
	}

	for step := 0; step < 300; step++ {
		var err error
		switch e.state.Phase.Kind {
		case world.PhaseDrafting:
			n := r.Intn(4)
			batch := make([]int, n)
			for i := range batch {
				batch[i] = r.Intn(5)
			}
			err = e.FinishDrafting(batch)
		case world.PhaseSelectAction:
			err = e.ChooseAction(r.Intn(4))
		case world.PhaseAction:
			err = e.ChooseTarget(r.Intn(3))
		}
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		checkInvariants(t, e, initial)
	}
}

func checkInvariants(t *testing.T, e *Engine, initial map[ecs.EntityID]int) {
	t.Helper()
	for _, id := range e.state.Combatants {
		p, _ := e.comps.DicePools.Get(id)
		if len(p.Drafted) > p.MaxDraft {
			t.Fatalf("%s drafted %d > %d", e.comps.NameOf(id), len(p.Drafted), p.MaxDraft)
		}
		total := len(p.Available) + len(p.Drafted) + len(p.Rolled)
		for _, d := range p.Available {
			if d.IsRolled() {
				t.Fatalf("%s available die %v is rolled", e.comps.NameOf(id), d)
			}
		}
		rolled := append([]component.Die(nil), p.Rolled...)
		if h, ok := e.comps.HeavyAttackers.Get(id); ok {
			total += len(h.PreppedAttack)
			rolled = append(rolled, h.PreppedAttack...)
		}
		if d, ok := e.comps.Defenders.Get(id); ok {
			total += len(d.PreppedDefense)
			rolled = append(rolled, d.PreppedDefense...)
		}
		for _, d := range rolled {
			if d.Rolled < 1 || d.Rolled > d.Sides {
				t.Fatalf("%s committed die %v has no valid face", e.comps.NameOf(id), d)
			}
		}
		if total != initial[id] {
			t.Fatalf("%s holds %d dice, started with %d", e.comps.NameOf(id), total, initial[id])
		}
		if hp, _ := e.comps.Health.Get(id); hp.HP < 0 {
			t.Fatalf("%s hp %d < 0", e.comps.NameOf(id), hp.HP)
		}
	}
}
