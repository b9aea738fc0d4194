package replay_test

import (
	"context"
	"reflect"
	"testing"

	"towerproof.dev/internal/sim/autopilot"
	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/fixed"
	"towerproof.dev/internal/sim/replay"
)

func quickConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Heroes = nil
	cfg.FortressRange = fixed.FromInt(30)
	cfg.FortressCooldownTicks = 1
	cfg.FortressBaseDamage = fixed.FromInt(100)
	// One relic choice: mutating it cannot strand a later choice event.
	cfg.WaveCount = 2
	return cfg
}

func record(t *testing.T, seed int32, cfg engine.Config) autopilot.Recording {
	t.Helper()
	rec, err := autopilot.Play(seed, cfg, autopilot.Options{})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !rec.Ended {
		t.Fatalf("recording did not end")
	}
	return rec
}

func mustRun(t *testing.T, in replay.Input) replay.Result {
	t.Helper()
	res, err := replay.Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRun_HonestSubmissionVerifiesIdempotently(t *testing.T) {
	rec := record(t, 77, quickConfig())
	audits := replay.PickAuditTicks(0xC0FFEE, rec.Checkpoints, 2)
	if len(audits) != 2 {
		t.Fatalf("audits=%v", audits)
	}

	first := mustRun(t, rec.Input(audits))
	if !first.Success || first.Reason != "" {
		t.Fatalf("honest run rejected: %+v", first)
	}
	if first.FinalHash != rec.FinalHash || first.Score != rec.Score {
		t.Fatalf("verdict hash/score %08x/%d, recorded %08x/%d", first.FinalHash, first.Score, rec.FinalHash, rec.Score)
	}
	if first.EventsApplied != uint32(len(rec.Events)) {
		t.Fatalf("applied=%d events=%d", first.EventsApplied, len(rec.Events))
	}
	second := mustRun(t, rec.Input(audits))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("verdicts differ:\n%+v\n%+v", first, second)
	}
}

func TestRun_Seed42DefeatScenario(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.FortressBaseHP = fixed.FromInt(10)
	cfg.FortressBaseDamage = 0
	a := record(t, 42, cfg)
	b := record(t, 42, cfg)
	if a.Outcome != engine.OutcomeDefeat || a.FinalHash != b.FinalHash {
		t.Fatalf("outcome=%s hashes %08x/%08x", a.Outcome, a.FinalHash, b.FinalHash)
	}
	if res := mustRun(t, a.Input(nil)); !res.Success {
		t.Fatalf("rejected: %+v", res)
	}
}

func TestRun_TicksNotMonotonic(t *testing.T) {
	in := replay.Input{
		SimVersion: engine.SimVersion,
		Seed:       1,
		Config:     engine.DefaultConfig(),
		Events: []engine.Event{
			engine.UpgradeHero{Tick: 100, HeroID: 1},
			engine.UpgradeHero{Tick: 50, HeroID: 1},
		},
	}
	res := mustRun(t, in)
	if res.Success || res.Reason != replay.ReasonTicksNotMonotonic {
		t.Fatalf("reason=%q want %q", res.Reason, replay.ReasonTicksNotMonotonic)
	}
	if res.TicksSimulated != 0 {
		t.Fatalf("simulation ran before the order check")
	}
}

func TestRun_MutatedChoiceFailsFinalHash(t *testing.T) {
	rec := record(t, 77, quickConfig())
	in := rec.Input(nil)
	mutated := false
	for i, ev := range in.Events {
		if c, ok := ev.(engine.ChooseRelic); ok {
			c.OptionIndex = 1
			in.Events[i] = c
			mutated = true
			break
		}
	}
	if !mutated {
		t.Fatalf("recording has no relic choice")
	}
	res := mustRun(t, in)
	if res.Reason != replay.ReasonFinalHashMismatch {
		t.Fatalf("reason=%q want %q", res.Reason, replay.ReasonFinalHashMismatch)
	}
}

func TestRun_AuditFailures(t *testing.T) {
	rec := record(t, 77, quickConfig())
	claimed := rec.Checkpoints[len(rec.Checkpoints)/2]

	t.Run("unclaimed tick", func(t *testing.T) {
		res := mustRun(t, rec.Input([]uint32{claimed.Tick, 37}))
		if res.Reason != replay.ReasonAuditTickMissing {
			t.Fatalf("reason=%q", res.Reason)
		}
	})
	t.Run("after the end", func(t *testing.T) {
		res := mustRun(t, rec.Input([]uint32{rec.Ticks + 10}))
		if res.Reason != replay.ReasonAuditTickMissing {
			t.Fatalf("reason=%q", res.Reason)
		}
	})
	t.Run("tampered claim", func(t *testing.T) {
		in := rec.Input([]uint32{claimed.Tick})
		for i := range in.ExpectedCheckpoints {
			if in.ExpectedCheckpoints[i].Tick == claimed.Tick {
				in.ExpectedCheckpoints[i].Hash ^= 0x80
			}
		}
		res := mustRun(t, in)
		if res.Reason != replay.ReasonCheckpointMismatch {
			t.Fatalf("reason=%q", res.Reason)
		}
	})
	t.Run("tampered but not audited", func(t *testing.T) {
		in := rec.Input(nil)
		in.ExpectedCheckpoints[0].Hash ^= 0x80
		if res := mustRun(t, in); !res.Success {
			t.Fatalf("unaudited checkpoint rejected run: %+v", res)
		}
	})
}

func TestRun_IssuedAuditTickVerifies(t *testing.T) {
	rec, err := autopilot.Play(77, quickConfig(), autopilot.Options{AuditTicks: []uint32{37}})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !rec.Ended {
		t.Fatalf("recording did not end")
	}
	res := mustRun(t, rec.Input([]uint32{37}))
	if !res.Success {
		t.Fatalf("issued audit tick rejected honest run: %+v", res)
	}

	// Claiming the issued tick does not cover a tick that was never issued.
	if res := mustRun(t, rec.Input([]uint32{37, 38})); res.Reason != replay.ReasonAuditTickMissing {
		t.Fatalf("reason=%q want %q", res.Reason, replay.ReasonAuditTickMissing)
	}
}

func TestRun_ForgedConfigFailsAgainstRules(t *testing.T) {
	rules := quickConfig()
	forged := quickConfig()
	forged.FortressBaseHP = fixed.FromInt(30000)
	forged.FortressBaseDamage = fixed.FromInt(1000)
	forged.FortressRange = fixed.FromInt(60)

	rec := record(t, 77, forged)
	in := rec.Input(nil)
	if res := mustRun(t, in); !res.Success {
		t.Fatalf("self-consistent forged run should verify without rules: %+v", res)
	}

	in.Rules = &rules
	res := mustRun(t, in)
	if res.Success || res.Reason != replay.ReasonConfigMismatch {
		t.Fatalf("reason=%q want %q", res.Reason, replay.ReasonConfigMismatch)
	}
	if res.TicksSimulated != 0 {
		t.Fatalf("simulated %d ticks under a rejected config", res.TicksSimulated)
	}

	honest := record(t, 77, rules)
	in = honest.Input(replay.PickAuditTicks(1, honest.Checkpoints, 2))
	in.Rules = &rules
	if res := mustRun(t, in); !res.Success {
		t.Fatalf("honest run rejected under rules: %+v", res)
	}
}

func TestRun_NilEventIsDropped(t *testing.T) {
	rec := record(t, 3, quickConfig())
	in := rec.Input(nil)
	in.Events = append(in.Events, nil)
	res := mustRun(t, in)
	if res.DroppedBy[engine.RejectUnknownEvent] != 1 {
		t.Fatalf("dropped=%v", res.DroppedBy)
	}
	if res.FinalHash != rec.FinalHash {
		t.Fatalf("nil event changed the final hash")
	}
}

func TestCheckOrder_SkipsNil(t *testing.T) {
	events := []engine.Event{
		engine.UpgradeHero{Tick: 1, HeroID: 1},
		nil,
		engine.UpgradeHero{Tick: 5, HeroID: 1},
	}
	if i := replay.CheckOrder(events); i >= 0 {
		t.Fatalf("nil entry reported at %d", i)
	}
	events = append(events, nil, engine.UpgradeHero{Tick: 2, HeroID: 1})
	if i := replay.CheckOrder(events); i != 4 {
		t.Fatalf("out of order at %d, want 4", i)
	}
}

func TestRun_VersionMismatch(t *testing.T) {
	rec := record(t, 3, quickConfig())
	in := rec.Input(nil)
	in.SimVersion = engine.SimVersion + 1
	if res := mustRun(t, in); res.Reason != replay.ReasonVersionMismatch {
		t.Fatalf("reason=%q", res.Reason)
	}
	in = rec.Input(nil)
	in.Config.Version = 0
	if res := mustRun(t, in); res.Reason != replay.ReasonVersionMismatch {
		t.Fatalf("config version: reason=%q", res.Reason)
	}
}

func TestRun_TickLimitIsNotTampering(t *testing.T) {
	rec := record(t, 3, quickConfig())
	in := rec.Input(nil)
	in.MaxTicks = 50
	res := mustRun(t, in)
	if res.Reason != replay.ReasonTickLimitExceeded || res.TicksSimulated != 50 {
		t.Fatalf("reason=%q ticks=%d", res.Reason, res.TicksSimulated)
	}
}

func TestRun_MalformedConfigIsAnError(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.WaveCount = 0
	_, err := replay.Run(replay.Input{SimVersion: engine.SimVersion, Config: cfg})
	if err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestRunBatch_MatchesSequential(t *testing.T) {
	var inputs []replay.Input
	for seed := int32(1); seed <= 6; seed++ {
		rec := record(t, seed, quickConfig())
		in := rec.Input(replay.PickAuditTicks(uint32(seed), rec.Checkpoints, 1))
		if seed%3 == 0 {
			in.ExpectedFinalHash ^= 1
		}
		inputs = append(inputs, in)
	}
	got, err := replay.RunBatch(context.Background(), inputs, 3)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	for i, in := range inputs {
		want := mustRun(t, in)
		if !reflect.DeepEqual(got[i], want) {
			t.Fatalf("input %d: batch %+v sequential %+v", i, got[i], want)
		}
	}
	if got[2].Reason != replay.ReasonFinalHashMismatch || !got[0].Success {
		t.Fatalf("unexpected verdicts: %+v / %+v", got[0], got[2])
	}
}

func TestRunBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := record(t, 1, quickConfig())
	if _, err := replay.RunBatch(ctx, []replay.Input{rec.Input(nil)}, 1); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPickAuditTicks_DeterministicSubset(t *testing.T) {
	rec := record(t, 9, quickConfig())
	a := replay.PickAuditTicks(5, rec.Checkpoints, 3)
	b := replay.PickAuditTicks(5, rec.Checkpoints, 3)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("not deterministic: %v vs %v", a, b)
	}
	claimed := map[uint32]bool{}
	for _, cp := range rec.Checkpoints {
		claimed[cp.Tick] = true
	}
	for i, tick := range a {
		if !claimed[tick] {
			t.Fatalf("picked unclaimed tick %d", tick)
		}
		if i > 0 && a[i-1] >= tick {
			t.Fatalf("not sorted: %v", a)
		}
	}
	if got := replay.PickAuditTicks(5, nil, 3); len(got) != 0 {
		t.Fatalf("picked from nothing: %v", got)
	}
}
