package engine

import (
	"towerproof.dev/internal/sim/fixed"
)

// Event is a player decision scheduled for an exact tick. The engine only consumes
// events; it never creates them.
type Event interface {
	EventTick() uint32
}

type ChooseRelic struct {
	Tick        uint32
	Wave        uint32
	OptionIndex int32
}

type MoveHero struct {
	Tick   uint32
	HeroID uint32
	Target fixed.Vec2
}

type UpgradeHero struct {
	Tick   uint32
	HeroID uint32
}

type ActivateSkill struct {
	Tick     uint32
	HeroID   uint32
	TargetID uint32
}

func (e ChooseRelic) EventTick() uint32   { return e.Tick }
func (e MoveHero) EventTick() uint32      { return e.Tick }
func (e UpgradeHero) EventTick() uint32   { return e.Tick }
func (e ActivateSkill) EventTick() uint32 { return e.Tick }

// Rejection codes recorded in Diagnostics.
const (
	RejectStale        = "E_STALE"
	RejectNotInChoice  = "E_NOT_IN_CHOICE"
	RejectInChoice     = "E_IN_CHOICE"
	RejectWrongWave    = "E_WRONG_WAVE"
	RejectOutOfRange   = "E_OUT_OF_RANGE"
	RejectOutOfBounds  = "E_OUT_OF_BOUNDS"
	RejectTarget       = "E_INVALID_TARGET"
	RejectCooldown     = "E_COOLDOWN"
	RejectMaxLevel     = "E_MAX_LEVEL"
	RejectNoResource   = "E_NO_RESOURCE"
	RejectUnknownEvent = "E_UNKNOWN_EVENT"
)

// RejectCodes lists every code the engine can record.
var RejectCodes = []string{
	RejectStale, RejectNotInChoice, RejectInChoice, RejectWrongWave, RejectOutOfRange,
	RejectOutOfBounds, RejectTarget, RejectCooldown, RejectMaxLevel, RejectNoResource,
	RejectUnknownEvent,
}

// Diagnostics counts event outcomes. It is never part of hashed state.
type Diagnostics struct {
	Applied   uint32            `json:"applied"`
	Dropped   uint32            `json:"dropped"`
	DroppedBy map[string]uint32 `json:"dropped_by,omitempty"`
}

func (d *Diagnostics) drop(code string) {
	d.Dropped++
	if d.DroppedBy == nil {
		d.DroppedBy = map[string]uint32{}
	}
	d.DroppedBy[code]++
}

func (d Diagnostics) clone() Diagnostics {
	out := Diagnostics{Applied: d.Applied, Dropped: d.Dropped}
	if len(d.DroppedBy) > 0 {
		out.DroppedBy = make(map[string]uint32, len(d.DroppedBy))
		for k, v := range d.DroppedBy {
			out.DroppedBy[k] = v
		}
	}
	return out
}

// applyDueEvents consumes every queued event up to tick t. Events scheduled before t
// are stale: they are dropped, never applied retroactively.
func (s *Simulation) applyDueEvents(t uint32) {
	for s.cursor < len(s.events) {
		ev := s.events[s.cursor]
		if ev == nil {
			s.cursor++
			s.diag.drop(RejectUnknownEvent)
			continue
		}
		et := ev.EventTick()
		if et > t {
			return
		}
		s.cursor++
		if et < t {
			s.diag.drop(RejectStale)
			continue
		}
		if code := s.applyEvent(ev, t); code != "" {
			s.diag.drop(code)
			continue
		}
		s.diag.Applied++
	}
}

// applyEvent validates ev fully before touching state, so a rejected event leaves no
// trace in the simulation.
func (s *Simulation) applyEvent(ev Event, t uint32) string {
	st := &s.st
	switch e := ev.(type) {
	case ChooseRelic:
		if !st.InChoice {
			return RejectNotInChoice
		}
		if e.Wave != st.PendingChoice.Wave {
			return RejectWrongWave
		}
		if e.OptionIndex < 0 || int(e.OptionIndex) >= len(st.PendingChoice.Options) {
			return RejectOutOfRange
		}
		s.acquireRelic(st.PendingChoice.Options[e.OptionIndex])
		st.InChoice = false
		st.PendingChoice = PendingChoice{}
		s.startWave(st.Wave+1, t)
		return ""

	case MoveHero:
		if st.InChoice {
			return RejectInChoice
		}
		i := st.heroIndex(e.HeroID)
		if i < 0 {
			return RejectTarget
		}
		if !s.cfg.inArena(e.Target) {
			return RejectOutOfBounds
		}
		h := &st.Heroes[i]
		h.MoveTarget = e.Target
		h.Moving = h.Pos != e.Target
		return ""

	case UpgradeHero:
		i := st.heroIndex(e.HeroID)
		if i < 0 {
			return RejectTarget
		}
		h := &st.Heroes[i]
		if h.Level >= HeroMaxLevel {
			return RejectMaxLevel
		}
		cost := s.upgradeCost(h.Level)
		if st.Gold < cost {
			return RejectNoResource
		}
		st.Gold -= cost
		h.Level++
		return ""

	case ActivateSkill:
		if st.InChoice {
			return RejectInChoice
		}
		i := st.heroIndex(e.HeroID)
		if i < 0 {
			return RejectTarget
		}
		h := &st.Heroes[i]
		if t < h.SkillReadyTick {
			return RejectCooldown
		}
		ei := st.enemyIndex(e.TargetID)
		if ei < 0 || st.Enemies[ei].HP <= 0 {
			return RejectTarget
		}
		r := s.heroRange(h)
		if fixed.DistanceSq(h.Pos, st.Enemies[ei].Pos) > fixed.Mul(r, r) {
			return RejectOutOfRange
		}
		dmg := fixed.MulInt(s.heroDamage(h), skillDamageMultiplier)
		s.fire(h.Pos, st.Enemies[ei].ID, dmg, h.Kind.archetype())
		h.SkillReadyTick = t + SkillCooldownTicks
		return ""
	}
	return RejectUnknownEvent
}

func (s *Simulation) upgradeCost(level uint8) int32 {
	return s.cfg.UpgradeBaseCost * int32(level)
}

// UpgradeCost reports the gold an UpgradeHero event for heroID would cost now.
// ok is false for unknown or fully upgraded heroes.
func (s *Simulation) UpgradeCost(heroID uint32) (cost int32, ok bool) {
	i := s.st.heroIndex(heroID)
	if i < 0 || s.st.Heroes[i].Level >= HeroMaxLevel {
		return 0, false
	}
	return s.upgradeCost(s.st.Heroes[i].Level), true
}
