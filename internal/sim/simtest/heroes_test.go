package simtest

import (
	"testing"

	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/fixed"
)

func TestMoveHero_WalksToTarget(t *testing.T) {
	h := New(t, 11, engine.DefaultConfig())
	start := h.Hero(1).Pos
	target := start.Add(fixed.VInt(1, 0))

	h.Step(engine.MoveHero{HeroID: 1, Target: target})
	if !h.Hero(1).Moving {
		t.Fatalf("hero not moving after accepted move")
	}
	h.StepFor(20)
	got := h.Hero(1)
	if got.Moving || got.Pos != target {
		t.Fatalf("hero did not arrive: pos=%v moving=%v", got.Pos, got.Moving)
	}
}

func TestMoveHero_RejectsOutsideArena(t *testing.T) {
	h := New(t, 11, engine.DefaultConfig())
	before := h.Hero(1)

	h.Step(engine.MoveHero{HeroID: 1, Target: fixed.VInt(-1, 0)})
	h.Step(engine.MoveHero{HeroID: 99, Target: fixed.VInt(1, 0)})

	if h.Hero(1) != before {
		t.Fatalf("rejected move changed hero: %+v", h.Hero(1))
	}
	if h.Dropped(engine.RejectOutOfBounds) != 1 || h.Dropped(engine.RejectTarget) != 1 {
		t.Fatalf("drops=%v", h.Sim.Diagnostics().DroppedBy)
	}
}

func TestUpgradeHero_NeedsGold(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.StartingGold = cfg.UpgradeBaseCost
	h := New(t, 3, cfg)

	cost, ok := h.Sim.UpgradeCost(1)
	if !ok || cost != cfg.UpgradeBaseCost {
		t.Fatalf("UpgradeCost=%d,%v", cost, ok)
	}
	h.Step(engine.UpgradeHero{HeroID: 1})
	if h.Hero(1).Level != 2 || h.Sim.State().Gold != 0 {
		t.Fatalf("upgrade not applied: level=%d gold=%d", h.Hero(1).Level, h.Sim.State().Gold)
	}
	h.Step(engine.UpgradeHero{HeroID: 1})
	if h.Hero(1).Level != 2 || h.Dropped(engine.RejectNoResource) != 1 {
		t.Fatalf("unaffordable upgrade applied: level=%d", h.Hero(1).Level)
	}
}

func TestRunToEnd_SameSeedSameFinalHash(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.WaveCount = 2
	a := New(t, 99, cfg)
	b := New(t, 99, cfg)
	a.RunToEnd(1, 20000)
	b.RunToEnd(1, 20000)
	if a.Sim.FinalHash() != b.Sim.FinalHash() || a.Sim.Tick() != b.Sim.Tick() {
		t.Fatalf("diverged: %08x@%d vs %08x@%d", a.Sim.FinalHash(), a.Sim.Tick(), b.Sim.FinalHash(), b.Sim.Tick())
	}
}
