// Package replay re-runs a submitted run from (seed, config, events) and checks the
// client's claimed checkpoints and final hash against the authoritative simulation.
package replay

import (
	"fmt"
	"sort"

	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/engine"
)

// Verdict reason codes.
const (
	ReasonVersionMismatch    = "VERSION_MISMATCH"
	ReasonConfigMismatch     = "CONFIG_MISMATCH"
	ReasonTicksNotMonotonic  = "TICKS_NOT_MONOTONIC"
	ReasonTickLimitExceeded  = "TICK_LIMIT_EXCEEDED"
	ReasonAuditTickMissing   = "AUDIT_TICK_MISSING"
	ReasonCheckpointMismatch = "CHECKPOINT_MISMATCH"
	ReasonFinalHashMismatch  = "FINAL_HASH_MISMATCH"
)

// Reasons lists every code Run can report.
var Reasons = []string{
	ReasonVersionMismatch, ReasonConfigMismatch, ReasonTicksNotMonotonic, ReasonTickLimitExceeded,
	ReasonAuditTickMissing, ReasonCheckpointMismatch, ReasonFinalHashMismatch,
}

// DefaultMaxTicks is the safety ceiling used when Input.MaxTicks is zero.
const DefaultMaxTicks uint32 = 200_000

type Input struct {
	SimVersion          int
	Seed                int32
	Config              engine.Config
	Events              []engine.Event
	ExpectedCheckpoints []checkpoint.Checkpoint
	ExpectedFinalHash   uint32
	AuditTicks          []uint32
	MaxTicks            uint32

	// Rules is the verifier's own config. When set, a submission whose Config differs
	// fails with CONFIG_MISMATCH and the run is simulated under Rules.
	Rules *engine.Config
}

type Result struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
	Detail    string `json:"detail,omitempty"`
	FinalHash uint32 `json:"final_hash"`
	Score     int32  `json:"score"`
	Outcome   string `json:"outcome,omitempty"`

	TicksSimulated uint32            `json:"ticks_simulated"`
	EventsApplied  uint32            `json:"events_applied"`
	EventsDropped  uint32            `json:"events_dropped"`
	DroppedBy      map[string]uint32 `json:"dropped_by,omitempty"`
	Checkpoints    int               `json:"checkpoints"`
}

func failed(reason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

// CheckOrder returns the index of the first event scheduled before its predecessor,
// or -1 when ticks never decrease. Nil entries are skipped; the engine drops them.
func CheckOrder(events []engine.Event) int {
	prev, seen := uint32(0), false
	for i, ev := range events {
		if ev == nil {
			continue
		}
		t := ev.EventTick()
		if seen && t < prev {
			return i
		}
		prev, seen = t, true
	}
	return -1
}

// Run verifies one submission on a fresh simulation. The returned error is reserved
// for a malformed config; every property of the submission itself is reported through
// Result. Run keeps no state between calls.
func Run(in Input) (Result, error) {
	if in.SimVersion != engine.SimVersion || in.Config.Version != engine.SimVersion {
		return failed(ReasonVersionMismatch, fmt.Sprintf("submission v%d config v%d, verifier v%d",
			in.SimVersion, in.Config.Version, engine.SimVersion)), nil
	}
	cfg := in.Config
	if in.Rules != nil {
		if !in.Rules.Equal(in.Config) {
			return failed(ReasonConfigMismatch, "submitted config differs from the verifier's rules"), nil
		}
		cfg = *in.Rules
	}
	if i := CheckOrder(in.Events); i >= 0 {
		return failed(ReasonTicksNotMonotonic, fmt.Sprintf("event %d at tick %d goes back in time",
			i, in.Events[i].EventTick())), nil
	}

	sim, err := engine.New(in.Seed, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("replay: %w", err)
	}
	audits := sortedUnique(in.AuditTicks)
	sim.SetAuditTicks(audits)
	sim.SetEvents(in.Events)

	limit := in.MaxTicks
	if limit == 0 {
		limit = DefaultMaxTicks
	}
	for !sim.Ended() && sim.Tick() < limit {
		sim.Step()
	}

	diag := sim.Diagnostics()
	res := Result{
		FinalHash:      sim.FinalHash(),
		Score:          sim.Score(),
		Outcome:        sim.Outcome().String(),
		TicksSimulated: sim.Tick(),
		EventsApplied:  diag.Applied,
		EventsDropped:  diag.Dropped,
		DroppedBy:      diag.DroppedBy,
		Checkpoints:    len(sim.Checkpoints()),
	}
	if !sim.Ended() {
		res.Reason = ReasonTickLimitExceeded
		res.Detail = fmt.Sprintf("run still active after %d ticks", limit)
		return res, nil
	}

	claimed := make(map[uint32]checkpoint.Checkpoint, len(in.ExpectedCheckpoints))
	for _, cp := range in.ExpectedCheckpoints {
		if _, dup := claimed[cp.Tick]; !dup {
			claimed[cp.Tick] = cp
		}
	}
	for _, at := range audits {
		got, ok := sim.CheckpointAt(at)
		want, claimedOK := claimed[at]
		if !ok || !claimedOK {
			res.Reason = ReasonAuditTickMissing
			res.Detail = fmt.Sprintf("tick %d: produced=%v claimed=%v", at, ok, claimedOK)
			return res, nil
		}
		if got.Hash != want.Hash || got.ChainHash != want.ChainHash {
			res.Reason = ReasonCheckpointMismatch
			res.Detail = fmt.Sprintf("tick %d: hash %08x/%08x chain %08x/%08x",
				at, got.Hash, want.Hash, got.ChainHash, want.ChainHash)
			return res, nil
		}
	}

	if res.FinalHash != in.ExpectedFinalHash {
		res.Reason = ReasonFinalHashMismatch
		res.Detail = fmt.Sprintf("final hash %08x, claimed %08x", res.FinalHash, in.ExpectedFinalHash)
		return res, nil
	}
	res.Success = true
	return res, nil
}

func sortedUnique(ticks []uint32) []uint32 {
	out := append([]uint32(nil), ticks...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	w := 0
	for i, t := range out {
		if i > 0 && t == out[w-1] {
			continue
		}
		out[w] = t
		w++
	}
	return out[:w]
}
