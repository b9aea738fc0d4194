// Package simtest drives a Simulation through its exported API only, so tests can live
// outside the engine package.
package simtest

import (
	"testing"

	"towerproof.dev/internal/sim/engine"
)

type Harness struct {
	T   *testing.T
	Sim *engine.Simulation
}

func New(t *testing.T, seed int32, cfg engine.Config) *Harness {
	t.Helper()
	s, err := engine.New(seed, cfg)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return &Harness{T: t, Sim: s}
}

// Now schedules events on the current tick. Tick fields of the given events are
// overwritten.
func (h *Harness) Now(events ...engine.Event) {
	t := h.Sim.Tick()
	for _, ev := range events {
		switch e := ev.(type) {
		case engine.ChooseRelic:
			e.Tick = t
			ev = e
		case engine.MoveHero:
			e.Tick = t
			ev = e
		case engine.UpgradeHero:
			e.Tick = t
			ev = e
		case engine.ActivateSkill:
			e.Tick = t
			ev = e
		}
		h.Sim.AppendEvent(ev)
	}
}

// Step schedules events on the current tick and advances once.
func (h *Harness) Step(events ...engine.Event) uint32 {
	h.T.Helper()
	h.Now(events...)
	_, digest := h.Sim.StepOnce()
	return digest
}

func (h *Harness) StepFor(n int) {
	h.T.Helper()
	for i := 0; i < n && !h.Sim.Ended(); i++ {
		h.Sim.Step()
	}
}

// ChooseWhenPending answers an open choice with option pick and reports whether one was open.
func (h *Harness) ChooseWhenPending(pick int32) bool {
	wave, _, ok := h.Sim.InChoice()
	if !ok {
		return false
	}
	h.Now(engine.ChooseRelic{Wave: wave, OptionIndex: pick})
	return true
}

// RunToEnd steps until the run ends, answering every choice with pick.
func (h *Harness) RunToEnd(pick int32, maxTicks uint32) {
	h.T.Helper()
	for !h.Sim.Ended() && h.Sim.Tick() < maxTicks {
		h.ChooseWhenPending(pick)
		h.Sim.Step()
	}
	if !h.Sim.Ended() {
		h.T.Fatalf("run did not end within %d ticks (wave %d)", maxTicks, h.Sim.State().Wave)
	}
}

func (h *Harness) Hero(id uint32) engine.Hero {
	h.T.Helper()
	for _, hero := range h.Sim.State().Heroes {
		if hero.ID == id {
			return hero
		}
	}
	h.T.Fatalf("hero %d not found", id)
	return engine.Hero{}
}

func (h *Harness) Dropped(code string) uint32 {
	return h.Sim.Diagnostics().DroppedBy[code]
}
