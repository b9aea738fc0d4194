// Package engine runs the deterministic tower-defense simulation: a fortress at the
// origin, waves of enemies walking in from the right, heroes and relics, all in Q16.16
// fixed point with a single seeded RNG.
package engine

import (
	"sort"

	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/fixed"
	"towerproof.dev/internal/sim/rng"
)

// Simulation is not safe for concurrent use. Run independent instances in parallel
// instead.
type Simulation struct {
	cfg  Config
	seed int32
	rng  *rng.Xorshift32
	st   State

	events []Event
	cursor int

	audit       map[uint32]struct{}
	chain       *checkpoint.Chain
	checkpoints []checkpoint.Checkpoint

	diag Diagnostics
}

// New builds a simulation at tick 0. It fails only for a malformed config.
func New(seed int32, cfg Config) (*Simulation, error) {
	return newWithRNG(seed, cfg, rng.New(uint32(seed)))
}

func newWithRNG(seed int32, cfg Config, r *rng.Xorshift32) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:   cfg.clone(),
		seed:  seed,
		rng:   r,
		chain: checkpoint.NewChain(checkpoint.Genesis),
	}
	st := &s.st
	st.FortressHP = cfg.FortressBaseHP
	st.FortressMaxHP = cfg.FortressBaseHP
	st.Gold = cfg.StartingGold
	st.mods = deriveModifiers(nil)
	for _, hs := range cfg.Heroes {
		st.Heroes = append(st.Heroes, Hero{
			ID:         st.allocID(),
			Kind:       hs.Kind,
			Pos:        hs.Pos,
			MoveTarget: hs.Pos,
			Level:      1,
		})
	}
	s.startWave(1, 0)
	return s, nil
}

func (s *Simulation) Config() Config { return s.cfg.clone() }
func (s *Simulation) Seed() int32    { return s.seed }
func (s *Simulation) Tick() uint32   { return s.st.Tick }
func (s *Simulation) Ended() bool    { return s.st.Ended }

func (s *Simulation) Outcome() Outcome { return s.st.Outcome }
func (s *Simulation) Score() int32     { return s.st.Score }
func (s *Simulation) RNGState() uint32 { return s.rng.State() }

// InChoice reports whether the run waits for a ChooseRelic event, and for which wave.
func (s *Simulation) InChoice() (wave uint32, options []RelicID, ok bool) {
	if !s.st.InChoice {
		return 0, nil, false
	}
	return s.st.PendingChoice.Wave, append([]RelicID(nil), s.st.PendingChoice.Options...), true
}

// SetEvents replaces the pending queue with a copy of events, kept in the given order.
// An event whose tick has already passed when the cursor reaches it is dropped as stale.
func (s *Simulation) SetEvents(events []Event) {
	s.events = append([]Event(nil), events...)
	s.cursor = 0
}

// AppendEvent queues one more event behind the existing queue.
func (s *Simulation) AppendEvent(ev Event) {
	s.events = append(s.events, ev)
}

// SetAuditTicks replaces the set of ticks that must produce a checkpoint.
func (s *Simulation) SetAuditTicks(ticks []uint32) {
	s.audit = make(map[uint32]struct{}, len(ticks))
	for _, t := range ticks {
		s.audit[t] = struct{}{}
	}
}

// Checkpoints returns every checkpoint produced so far in tick order, linked and
// audit-only alike.
func (s *Simulation) Checkpoints() []checkpoint.Checkpoint {
	return append([]checkpoint.Checkpoint(nil), s.checkpoints...)
}

// CheckpointAt returns the checkpoint produced for tick t, if any.
func (s *Simulation) CheckpointAt(t uint32) (checkpoint.Checkpoint, bool) {
	i := sort.Search(len(s.checkpoints), func(i int) bool { return s.checkpoints[i].Tick >= t })
	if i < len(s.checkpoints) && s.checkpoints[i].Tick == t {
		return s.checkpoints[i], true
	}
	return checkpoint.Checkpoint{}, false
}

// ChainCheckpoints returns only the checkpoints that extend the chain.
func (s *Simulation) ChainCheckpoints() []checkpoint.Checkpoint { return s.chain.Links() }

func (s *Simulation) ChainHead() uint32 { return s.chain.Head() }

// Hash fingerprints the current state.
func (s *Simulation) Hash() uint32 { return checkpoint.Hash(s.st.hashInput(s.rng.State())) }

// FinalHash commits to the current state and the chain head. It is meaningful once the
// run has ended but can be computed at any time.
func (s *Simulation) FinalHash() uint32 {
	return checkpoint.FinalHash(s.st.hashInput(s.rng.State()), s.chain.Head())
}

func (s *Simulation) Diagnostics() Diagnostics { return s.diag.clone() }

// StepOnce advances a single tick and returns the processed tick with the resulting
// state hash. It is primarily intended for deterministic replays/tests.
func (s *Simulation) StepOnce() (tick uint32, hash uint32) {
	tick = s.st.Tick
	s.Step()
	return tick, s.Hash()
}

// recordCheckpoints runs after tick t is fully processed, before the tick counter
// advances, so a checkpoint for t fingerprints a state whose Tick field is t.
func (s *Simulation) recordCheckpoints(t uint32, waveBoundary bool) {
	every := s.cfg.CheckpointIntervalTicks
	linked := waveBoundary || (every > 0 && t > 0 && t%every == 0)
	_, audited := s.audit[t]
	if !linked && !audited {
		return
	}
	in := s.st.hashInput(s.rng.State())
	var cp checkpoint.Checkpoint
	if linked {
		cp = s.chain.Append(in)
	} else {
		cp = s.chain.Detached(in)
	}
	s.checkpoints = append(s.checkpoints, cp)
}

func (s *Simulation) heroRange(h *Hero) fixed.FP {
	return h.Kind.archetype().Range + s.st.mods.RangeBonus
}

func (s *Simulation) heroDamage(h *Hero) fixed.FP {
	a := h.Kind.archetype()
	dmg := fixed.Permille(s.cfg.FortressBaseDamage, a.DamagePermille)
	return fixed.Permille(dmg, s.st.mods.DamagePermille+heroLevelDamagePermill*int32(h.Level-1))
}
