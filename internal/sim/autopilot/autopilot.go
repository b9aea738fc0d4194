// Package autopilot plays a run locally the way a client would and records everything
// a submission needs: the event log, the chain checkpoints and the final hash.
package autopilot

import (
	"fmt"

	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/replay"
)

type Options struct {
	// Pick is the option index chosen at every relic choice. Out-of-range values are
	// clamped to the last offered option.
	Pick int32
	// UpgradeWhenAffordable spends gold on hero upgrades as soon as possible, lowest
	// hero ID first.
	UpgradeWhenAffordable bool
	// Script holds extra tick-ordered events fed in as their tick arrives.
	Script []engine.Event
	// MaxTicks stops a run that never ends; 0 uses replay.DefaultMaxTicks.
	MaxTicks uint32
	// AuditTicks are the ticks the verifier issued for this run. The recording carries
	// an audit-only checkpoint for each of them next to the chain links.
	AuditTicks []uint32
}

type Recording struct {
	Seed        int32
	Config      engine.Config
	Events      []engine.Event
	Checkpoints []checkpoint.Checkpoint
	AuditTicks  []uint32
	FinalHash   uint32
	Score       int32
	Outcome     engine.Outcome
	Ticks       uint32
	Ended       bool
}

// Input turns the recording into a verifier input with the given audit ticks.
func (r Recording) Input(auditTicks []uint32) replay.Input {
	return replay.Input{
		SimVersion:          r.Config.Version,
		Seed:                r.Seed,
		Config:              r.Config,
		Events:              append([]engine.Event(nil), r.Events...),
		ExpectedCheckpoints: append([]checkpoint.Checkpoint(nil), r.Checkpoints...),
		ExpectedFinalHash:   r.FinalHash,
		AuditTicks:          auditTicks,
	}
}

func Play(seed int32, cfg engine.Config, opts Options) (Recording, error) {
	if i := replay.CheckOrder(opts.Script); i >= 0 {
		return Recording{}, fmt.Errorf("autopilot: script event %d is out of tick order", i)
	}
	sim, err := engine.New(seed, cfg)
	if err != nil {
		return Recording{}, fmt.Errorf("autopilot: %w", err)
	}
	limit := opts.MaxTicks
	if limit == 0 {
		limit = replay.DefaultMaxTicks
	}

	sim.SetAuditTicks(opts.AuditTicks)
	rec := Recording{Seed: seed, Config: sim.Config(), AuditTicks: append([]uint32(nil), opts.AuditTicks...)}
	emit := func(ev engine.Event) {
		rec.Events = append(rec.Events, ev)
		sim.AppendEvent(ev)
	}

	script := opts.Script
	for !sim.Ended() && sim.Tick() < limit {
		t := sim.Tick()
		for len(script) > 0 {
			if script[0] == nil {
				script = script[1:]
				continue
			}
			if script[0].EventTick() > t {
				break
			}
			emit(script[0])
			script = script[1:]
		}
		if wave, options, ok := sim.InChoice(); ok {
			pick := opts.Pick
			if pick < 0 || int(pick) >= len(options) {
				pick = int32(len(options) - 1)
			}
			emit(engine.ChooseRelic{Tick: t, Wave: wave, OptionIndex: pick})
		}
		if opts.UpgradeWhenAffordable {
			gold := sim.State().Gold
			for _, h := range sim.State().Heroes {
				if cost, ok := sim.UpgradeCost(h.ID); ok && cost <= gold {
					emit(engine.UpgradeHero{Tick: t, HeroID: h.ID})
					gold -= cost
				}
			}
		}
		sim.Step()
	}

	rec.Checkpoints = sim.Checkpoints()
	rec.FinalHash = sim.FinalHash()
	rec.Score = sim.Score()
	rec.Outcome = sim.Outcome()
	rec.Ticks = sim.Tick()
	rec.Ended = sim.Ended()
	return rec, nil
}
