package engine

import (
	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/rng"
)

type Side uint8

const (
	SideA Side = iota
	SideB
)

type DuelOutcome uint8

const (
	DuelPending DuelOutcome = iota
	DuelWinA
	DuelWinB
	DuelDraw
)

func (o DuelOutcome) String() string {
	switch o {
	case DuelWinA:
		return "WIN_A"
	case DuelWinB:
		return "WIN_B"
	case DuelDraw:
		return "DRAW"
	default:
		return "PENDING"
	}
}

// Duel runs two fortresses head to head on one shared RNG. Every non-swarmling kill on
// one side queues a swarmling on the other, released on the next tick.
type Duel struct {
	rng  *rng.Xorshift32
	a, b *Simulation
	tick uint32
}

func NewDuel(seed int32, cfg Config) (*Duel, error) {
	r := rng.New(uint32(seed))
	a, err := newWithRNG(seed, cfg, r)
	if err != nil {
		return nil, err
	}
	b, err := newWithRNG(seed, cfg, r)
	if err != nil {
		return nil, err
	}
	return &Duel{rng: r, a: a, b: b}, nil
}

func (d *Duel) Side(side Side) *Simulation {
	if side == SideB {
		return d.b
	}
	return d.a
}

func (d *Duel) SetEvents(side Side, events []Event) { d.Side(side).SetEvents(events) }

func (d *Duel) Tick() uint32 { return d.tick }

func (d *Duel) Ended() bool { return d.a.Ended() || d.b.Ended() }

// Step advances both sides one tick. Even ticks evaluate A first, odd ticks B first;
// the order decides which side consumes the shared RNG first.
func (d *Duel) Step() {
	if d.Ended() {
		return
	}
	first, second := d.a, d.b
	if d.tick%2 == 1 {
		first, second = d.b, d.a
	}
	first.Step()
	second.Step()

	toSecond, toFirst := first.st.pressureOut, second.st.pressureOut
	first.st.pressureOut, second.st.pressureOut = 0, 0
	if !second.st.Ended {
		second.st.PendingPressure += toSecond
	}
	if !first.st.Ended {
		first.st.PendingPressure += toFirst
	}
	d.tick++
}

// Outcome: the survivor wins; simultaneous defeat is a draw; two victories compare
// score, equal scores draw.
func (d *Duel) Outcome() DuelOutcome {
	if !d.Ended() {
		return DuelPending
	}
	aLost := d.a.Outcome() == OutcomeDefeat
	bLost := d.b.Outcome() == OutcomeDefeat
	switch {
	case aLost && bLost:
		return DuelDraw
	case aLost:
		return DuelWinB
	case bLost:
		return DuelWinA
	}
	aWon := d.a.Outcome() == OutcomeVictory
	bWon := d.b.Outcome() == OutcomeVictory
	switch {
	case aWon && !bWon:
		return DuelWinA
	case bWon && !aWon:
		return DuelWinB
	case d.a.Score() > d.b.Score():
		return DuelWinA
	case d.b.Score() > d.a.Score():
		return DuelWinB
	}
	return DuelDraw
}

// FinalHash binds both sides' final hashes and the duel tick.
func (d *Duel) FinalHash() uint32 {
	return checkpoint.ChainHash(d.a.FinalHash(), d.tick, d.b.FinalHash())
}
