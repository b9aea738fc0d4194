package engine

import (
	"testing"

	"towerproof.dev/internal/sim/fixed"
	"towerproof.dev/internal/sim/rng"
)

func TestDuel_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	d1, err := NewDuel(8, cfg)
	if err != nil {
		t.Fatalf("NewDuel: %v", err)
	}
	d2, _ := NewDuel(8, cfg)
	for i := 0; i < 600; i++ {
		d1.Step()
		d2.Step()
		if d1.FinalHash() != d2.FinalHash() {
			t.Fatalf("duels diverged at tick %d", i)
		}
		if d1.Side(SideA).RNGState() != d1.Side(SideB).RNGState() {
			t.Fatalf("sides do not share the rng")
		}
	}
}

func TestDuel_EvaluationOrderAlternatesByParity(t *testing.T) {
	cfg := DefaultConfig()
	const seed = 31
	d, _ := NewDuel(seed, cfg)
	a, b := d.Side(SideA), d.Side(SideB)

	ref := rng.New(seed)
	hw := cfg.ArenaHalfWidth.Raw()
	speed := EnemySwarmling.archetype().Speed
	expect := func() fixed.Vec2 {
		y := fixed.FP(ref.NextInt(-hw, hw))
		p, _ := fixed.MoveTowards(fixed.V(cfg.SpawnDistance, y), fixed.Vec2{}, speed)
		return p
	}

	// Tick 0: A draws first.
	a.st.PendingPressure, b.st.PendingPressure = 1, 1
	d.Step()
	wantA, wantB := expect(), expect()
	if a.st.Enemies[0].Pos != wantA || b.st.Enemies[0].Pos != wantB {
		t.Fatalf("tick 0 order: a=%+v b=%+v want %+v %+v", a.st.Enemies[0].Pos, b.st.Enemies[0].Pos, wantA, wantB)
	}

	// Tick 1: B draws first.
	a.st.PendingPressure, b.st.PendingPressure = 1, 1
	d.Step()
	wantB, wantA = expect(), expect()
	if a.st.Enemies[1].Pos != wantA || b.st.Enemies[1].Pos != wantB {
		t.Fatalf("tick 1 order: a=%+v b=%+v want %+v %+v", a.st.Enemies[1].Pos, b.st.Enemies[1].Pos, wantA, wantB)
	}
}

func TestDuel_KillsSendPressure(t *testing.T) {
	d, _ := NewDuel(4, DefaultConfig())
	a, b := d.Side(SideA), d.Side(SideB)
	a.st.pressureOut = 2

	d.Step()
	if b.st.PendingPressure != 2 || a.st.PendingPressure != 0 {
		t.Fatalf("pressure a=%d b=%d want 0/2", a.st.PendingPressure, b.st.PendingPressure)
	}
	d.Step()
	swarm := 0
	for _, e := range b.st.Enemies {
		if e.Kind == EnemySwarmling {
			swarm++
		}
	}
	if swarm != 2 || b.st.PendingPressure != 0 {
		t.Fatalf("swarmlings=%d pending=%d want 2/0", swarm, b.st.PendingPressure)
	}
}

func TestDuel_Outcome(t *testing.T) {
	cases := []struct {
		name   string
		a, b   Outcome
		sa, sb int32
		want   DuelOutcome
	}{
		{"running", OutcomeNone, OutcomeNone, 0, 0, DuelPending},
		{"a falls", OutcomeDefeat, OutcomeNone, 0, 0, DuelWinB},
		{"b falls", OutcomeNone, OutcomeDefeat, 0, 0, DuelWinA},
		{"both fall", OutcomeDefeat, OutcomeDefeat, 50, 10, DuelDraw},
		{"a clears first", OutcomeVictory, OutcomeNone, 0, 90, DuelWinA},
		{"both clear, a scores more", OutcomeVictory, OutcomeVictory, 120, 80, DuelWinA},
		{"both clear, b scores more", OutcomeVictory, OutcomeVictory, 80, 120, DuelWinB},
		{"both clear, equal", OutcomeVictory, OutcomeVictory, 100, 100, DuelDraw},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := NewDuel(1, DefaultConfig())
			a, b := d.Side(SideA), d.Side(SideB)
			a.st.Outcome, a.st.Ended, a.st.Score = tc.a, tc.a != OutcomeNone, tc.sa
			b.st.Outcome, b.st.Ended, b.st.Score = tc.b, tc.b != OutcomeNone, tc.sb
			if got := d.Outcome(); got != tc.want {
				t.Fatalf("Outcome=%s want %s", got, tc.want)
			}
		})
	}
}
