package engine

import (
	"testing"

	"towerproof.dev/internal/sim/fixed"
)

func mustNew(t *testing.T, seed int32, cfg Config) *Simulation {
	t.Helper()
	s, err := New(seed, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// overpowered clears every wave without leaks so choices are guaranteed to open.
func overpowered() Config {
	cfg := DefaultConfig()
	cfg.Heroes = nil
	cfg.FortressRange = fixed.FromInt(30)
	cfg.FortressCooldownTicks = 1
	cfg.FortressBaseDamage = fixed.FromInt(100)
	cfg.WaveCount = 3
	return cfg
}

// stepAuto answers any pending choice with option pick on the current tick, then steps.
func stepAuto(s *Simulation, pick int32) {
	if wave, _, ok := s.InChoice(); ok {
		s.AppendEvent(ChooseRelic{Tick: s.Tick(), Wave: wave, OptionIndex: pick})
	}
	s.Step()
}

func runAuto(t *testing.T, s *Simulation, pick int32, maxTicks uint32) {
	t.Helper()
	for !s.Ended() && s.Tick() < maxTicks {
		stepAuto(s, pick)
	}
	if !s.Ended() {
		t.Fatalf("run did not end within %d ticks (wave %d)", maxTicks, s.State().Wave)
	}
}
