package engine

import (
	"testing"

	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/fixed"
)

func TestDeterminism_TwoInstancesSameHashEveryTick(t *testing.T) {
	cfg := DefaultConfig()
	s1 := mustNew(t, 1234, cfg)
	s2 := mustNew(t, 1234, cfg)

	for i := 0; i < 1500; i++ {
		if wave, _, ok := s1.InChoice(); ok {
			s1.AppendEvent(ChooseRelic{Tick: s1.Tick(), Wave: wave})
			s2.AppendEvent(ChooseRelic{Tick: s2.Tick(), Wave: wave})
		}
		t1, h1 := s1.StepOnce()
		t2, h2 := s2.StepOnce()
		if t1 != t2 || h1 != h2 {
			t.Fatalf("divergence at step %d: tick %d/%d hash %08x/%08x", i, t1, t2, h1, h2)
		}
	}
	if s1.FinalHash() != s2.FinalHash() {
		t.Fatalf("final hash mismatch")
	}
	if s1.RNGState() != s2.RNGState() {
		t.Fatalf("rng state mismatch")
	}
}

func TestDeterminism_DifferentSeedsDiverge(t *testing.T) {
	cfg := DefaultConfig()
	s1 := mustNew(t, 1, cfg)
	s2 := mustNew(t, 2, cfg)
	for i := 0; i < 200; i++ {
		s1.Step()
		s2.Step()
	}
	if s1.Hash() == s2.Hash() {
		t.Fatalf("different seeds produced the same state after spawns")
	}
}

func TestStepOnce_ReturnsProcessedTick(t *testing.T) {
	s := mustNew(t, 7, DefaultConfig())
	for want := uint32(0); want < 5; want++ {
		tick, _ := s.StepOnce()
		if tick != want {
			t.Fatalf("StepOnce tick=%d want %d", tick, want)
		}
	}
	if s.Tick() != 5 {
		t.Fatalf("Tick=%d want 5", s.Tick())
	}
}

func TestSeed42_EndsInDefeatWithIdenticalFinalHash(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FortressBaseHP = fixed.FromInt(10)
	cfg.FortressBaseDamage = 0

	const ceiling = 20000
	run := func() *Simulation {
		s := mustNew(t, 42, cfg)
		runAuto(t, s, 0, ceiling)
		return s
	}
	a, b := run(), run()

	if a.Outcome() != OutcomeDefeat {
		t.Fatalf("outcome=%s want DEFEAT", a.Outcome())
	}
	if v := a.State(); v.Kills != 0 || v.FortressHP != 0 || v.Leaked == 0 {
		t.Fatalf("unexpected end state: kills=%d hp=%d leaked=%d", v.Kills, v.FortressHP, v.Leaked)
	}
	if a.FinalHash() != b.FinalHash() {
		t.Fatalf("final hash differs across runs: %08x vs %08x", a.FinalHash(), b.FinalHash())
	}

	// Ended runs ignore further steps.
	tick, final := a.Tick(), a.FinalHash()
	a.Step()
	if a.Tick() != tick || a.FinalHash() != final {
		t.Fatalf("Step after end mutated the run")
	}
}

func TestChoiceOption_ChangesFinalHash(t *testing.T) {
	cfg := overpowered()
	a := mustNew(t, 99, cfg)
	b := mustNew(t, 99, cfg)
	runAuto(t, a, 0, 10000)
	runAuto(t, b, 1, 10000)

	if a.Outcome() != OutcomeVictory || b.Outcome() != OutcomeVictory {
		t.Fatalf("outcomes=%s/%s want VICTORY", a.Outcome(), b.Outcome())
	}
	if len(a.State().Relics) != 2 {
		t.Fatalf("relics=%v want 2", a.State().Relics)
	}
	if a.FinalHash() == b.FinalHash() {
		t.Fatalf("different relic picks produced the same final hash")
	}
}

func TestCheckpoints_AuditTicksDoNotChangeChain(t *testing.T) {
	cfg := overpowered()
	plain := mustNew(t, 5, cfg)
	audited := mustNew(t, 5, cfg)
	audited.SetAuditTicks([]uint32{37, 150, 151})

	runAuto(t, plain, 0, 10000)
	runAuto(t, audited, 0, 10000)

	pl, al := plain.ChainCheckpoints(), audited.ChainCheckpoints()
	if len(pl) == 0 || len(pl) != len(al) {
		t.Fatalf("linked checkpoints: %d vs %d", len(pl), len(al))
	}
	for i := range pl {
		if pl[i] != al[i] {
			t.Fatalf("link %d differs: %+v vs %+v", i, pl[i], al[i])
		}
	}
	if checkpoint.VerifyChain(checkpoint.Genesis, al) != -1 {
		t.Fatalf("produced chain does not verify")
	}
	if plain.FinalHash() != audited.FinalHash() {
		t.Fatalf("audit set leaked into final hash")
	}
	for _, tick := range []uint32{37, 150, 151} {
		if _, ok := audited.CheckpointAt(tick); !ok {
			t.Fatalf("no checkpoint at audit tick %d", tick)
		}
	}
	if _, ok := plain.CheckpointAt(37); ok {
		t.Fatalf("unaudited run produced a checkpoint at tick 37")
	}

	all := audited.Checkpoints()
	for i := 1; i < len(all); i++ {
		if all[i].Tick <= all[i-1].Tick {
			t.Fatalf("checkpoints not strictly increasing at %d: %d then %d", i, all[i-1].Tick, all[i].Tick)
		}
	}
}

func TestCheckpoints_CadenceAndWaveBoundaries(t *testing.T) {
	s := mustNew(t, 5, overpowered())
	runAuto(t, s, 0, 10000)
	got := map[uint32]bool{}
	for _, cp := range s.ChainCheckpoints() {
		got[cp.Tick] = true
	}
	for tick := uint32(100); tick < s.Tick(); tick += 100 {
		if !got[tick] {
			t.Fatalf("missing cadence checkpoint at %d", tick)
		}
	}
	// The final wave clear ends the run and is a wave boundary.
	if !got[s.Tick()-1] {
		t.Fatalf("missing boundary checkpoint at final tick %d", s.Tick()-1)
	}
}
