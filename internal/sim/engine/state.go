package engine

import (
	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/fixed"
)

type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "VICTORY"
	case OutcomeDefeat:
		return "DEFEAT"
	default:
		return "NONE"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

type Enemy struct {
	ID        uint32     `json:"id"`
	Kind      EnemyKind  `json:"kind"`
	Pos       fixed.Vec2 `json:"pos"`
	HP        fixed.FP   `json:"hp"`
	MaxHP     fixed.FP   `json:"max_hp"`
	SlowTicks uint32     `json:"slow_ticks,omitempty"`
	BurnTicks uint32     `json:"burn_ticks,omitempty"`
}

type Hero struct {
	ID             uint32     `json:"id"`
	Kind           HeroKind   `json:"kind"`
	Pos            fixed.Vec2 `json:"pos"`
	MoveTarget     fixed.Vec2 `json:"move_target"`
	Moving         bool       `json:"moving"`
	Level          uint8      `json:"level"`
	Cooldown       uint32     `json:"cooldown"`
	SkillReadyTick uint32     `json:"skill_ready_tick"`
}

type Projectile struct {
	ID        uint32     `json:"id"`
	TargetID  uint32     `json:"target_id"`
	Pos       fixed.Vec2 `json:"pos"`
	Speed     fixed.FP   `json:"speed"`
	Damage    fixed.FP   `json:"damage"`
	BurnTicks uint32     `json:"burn_ticks,omitempty"`
	SlowTicks uint32     `json:"slow_ticks,omitempty"`
}

type PendingChoice struct {
	Wave    uint32    `json:"wave"`
	Options []RelicID `json:"options"`
}

// State is owned by exactly one Simulation. Entity slices are kept in ascending ID
// order, which is also insertion order.
type State struct {
	Tick uint32

	FortressHP       fixed.FP
	FortressMaxHP    fixed.FP
	FortressCooldown uint32

	Wave            uint32
	WaveSpawned     uint32
	WaveQuota       uint32
	NextSpawnTick   uint32
	PendingPressure uint32

	InChoice      bool
	PendingChoice PendingChoice
	Relics        []RelicID

	Kills  uint32
	Leaked uint32
	Score  int32
	Gold   int32

	Ended   bool
	Outcome Outcome

	Enemies     []Enemy
	Heroes      []Hero
	Projectiles []Projectile

	nextID      uint32
	mods        modifiers
	pressureOut uint32
}

func (st *State) allocID() uint32 {
	st.nextID++
	return st.nextID
}

func (st *State) owns(r RelicID) bool {
	for _, o := range st.Relics {
		if o == r {
			return true
		}
	}
	return false
}

// enemyIndex relies on Enemies being sorted by ID.
func (st *State) enemyIndex(id uint32) int {
	lo, hi := 0, len(st.Enemies)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if st.Enemies[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(st.Enemies) && st.Enemies[lo].ID == id {
		return lo
	}
	return -1
}

func (st *State) heroIndex(id uint32) int {
	for i := range st.Heroes {
		if st.Heroes[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *State) hashInput(rngState uint32) checkpoint.StateInput {
	in := checkpoint.StateInput{
		Tick:             st.Tick,
		RNG:              rngState,
		FortressHP:       st.FortressHP,
		FortressMaxHP:    st.FortressMaxHP,
		FortressCooldown: st.FortressCooldown,
		Wave:             st.Wave,
		WaveSpawned:      st.WaveSpawned,
		WaveQuota:        st.WaveQuota,
		NextSpawnTick:    st.NextSpawnTick,
		PendingPressure:  st.PendingPressure,
		InChoice:         st.InChoice,
		Kills:            st.Kills,
		Leaked:           st.Leaked,
		Score:            st.Score,
		Gold:             st.Gold,
		Ended:            st.Ended,
		Outcome:          uint8(st.Outcome),
	}
	if st.InChoice {
		in.ChoiceWave = st.PendingChoice.Wave
		in.ChoiceOptions = relicWords(st.PendingChoice.Options)
	}
	in.Relics = relicWords(st.Relics)

	in.Enemies = make([]checkpoint.EnemyInput, len(st.Enemies))
	for i, e := range st.Enemies {
		in.Enemies[i] = checkpoint.EnemyInput{
			ID: e.ID, Kind: uint8(e.Kind), Pos: e.Pos, HP: e.HP,
			SlowTicks: e.SlowTicks, BurnTicks: e.BurnTicks,
		}
	}
	in.Heroes = make([]checkpoint.HeroInput, len(st.Heroes))
	for i, h := range st.Heroes {
		in.Heroes[i] = checkpoint.HeroInput{
			ID: h.ID, Kind: uint8(h.Kind), Pos: h.Pos, MoveTarget: h.MoveTarget,
			Moving: h.Moving, Level: h.Level, Cooldown: h.Cooldown, SkillReadyTick: h.SkillReadyTick,
		}
	}
	in.Projectiles = make([]checkpoint.ProjectileInput, len(st.Projectiles))
	for i, p := range st.Projectiles {
		in.Projectiles[i] = checkpoint.ProjectileInput{
			ID: p.ID, TargetID: p.TargetID, Pos: p.Pos, Speed: p.Speed, Damage: p.Damage,
			BurnTicks: p.BurnTicks, SlowTicks: p.SlowTicks,
		}
	}
	return in
}

func relicWords(rs []RelicID) []uint32 {
	out := make([]uint32, len(rs))
	for i, r := range rs {
		out[i] = uint32(r)
	}
	return out
}
