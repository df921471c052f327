package system

import (
	"errors"
	"testing"
)

type recorder struct {
	phase Phase
	trace *[]Phase
	err   error
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update() error {
	*r.trace = append(*r.trace, r.phase)
	return r.err
}

func TestRunnerOrdersByPhase(t *testing.T) {
	var trace []Phase
	r := NewRunner()
	for _, p := range []Phase{PhaseCleanup, PhaseAction, PhaseDraft, PhaseMaterialize, PhaseRoll} {
		r.Register(recorder{phase: p, trace: &trace})
	}
	if err := r.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	want := []Phase{PhaseDraft, PhaseRoll, PhaseAction, PhaseMaterialize, PhaseCleanup}
	for i, p := range want {
		if trace[i] != p {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestRunnerStopsOnError(t *testing.T) {
	var trace []Phase
	boom := errors.New("boom")
	r := NewRunner()
	r.Register(recorder{phase: PhaseMaterialize, trace: &trace})
	r.Register(recorder{phase: PhaseRoll, trace: &trace, err: boom})
	err := r.Tick()
	if !errors.Is(err, boom) {
		t.Fatalf("Tick err = %v, want wrapped boom", err)
	}
	if len(trace) != 1 {
		t.Fatalf("systems after the failure ran: %v", trace)
	}
}
