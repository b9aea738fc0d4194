package checkpoint

import (
	"encoding/binary"
	"hash"

	"towerproof.dev/internal/sim/fixed"
)

// HashLayoutVersion pins the byte layout below. Any change to field order, widths or
// membership must bump it together with the simulation version.
const HashLayoutVersion uint32 = 1

// StateInput is the canonical subset of simulation state that gets fingerprinted.
//
// Layout v1, all integers little-endian, fixed-point values as their raw int32 word:
//
//	u32 layout version
//	u32 tick, u32 rng state
//	i32 fortress hp, i32 fortress max hp, u32 fortress cooldown
//	u32 wave, u32 wave spawned, u32 wave quota, u32 next spawn tick, u32 pending pressure
//	u8  in choice, u32 choice wave, u32 n, n*u32 choice options
//	u32 n, n*u32 relics (acquisition order)
//	u32 kills, u32 leaked, i32 score, i32 gold
//	u8  ended, u8 outcome
//	u32 n, n*enemy      (id u32, kind u8, x i32, y i32, hp i32, slow u32, burn u32)
//	u32 n, n*hero       (id u32, kind u8, x i32, y i32, tx i32, ty i32, moving u8,
//	                     level u8, cooldown u32, skill ready u32)
//	u32 n, n*projectile (id u32, target u32, x i32, y i32, speed i32, damage i32,
//	                     burn u32, slow u32)
//
// Slices are hashed in the order given; the engine keeps them in ascending ID order.
type StateInput struct {
	Tick uint32
	RNG  uint32

	FortressHP       fixed.FP
	FortressMaxHP    fixed.FP
	FortressCooldown uint32

	Wave            uint32
	WaveSpawned     uint32
	WaveQuota       uint32
	NextSpawnTick   uint32
	PendingPressure uint32

	InChoice      bool
	ChoiceWave    uint32
	ChoiceOptions []uint32

	Relics []uint32

	Kills  uint32
	Leaked uint32
	Score  int32
	Gold   int32

	Ended   bool
	Outcome uint8

	Enemies     []EnemyInput
	Heroes      []HeroInput
	Projectiles []ProjectileInput
}

type EnemyInput struct {
	ID        uint32
	Kind      uint8
	Pos       fixed.Vec2
	HP        fixed.FP
	SlowTicks uint32
	BurnTicks uint32
}

type HeroInput struct {
	ID             uint32
	Kind           uint8
	Pos            fixed.Vec2
	MoveTarget     fixed.Vec2
	Moving         bool
	Level          uint8
	Cooldown       uint32
	SkillReadyTick uint32
}

type ProjectileInput struct {
	ID        uint32
	TargetID  uint32
	Pos       fixed.Vec2
	Speed     fixed.FP
	Damage    fixed.FP
	BurnTicks uint32
	SlowTicks uint32
}

type encoder struct {
	h   hash.Hash32
	tmp [4]byte
}

func (e *encoder) u8(v uint8) { e.h.Write([]byte{v}) }

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.tmp[:], v)
	e.h.Write(e.tmp[:])
}

func (e *encoder) i32(v int32)   { e.u32(uint32(v)) }
func (e *encoder) fp(v fixed.FP) { e.i32(v.Raw()) }

func (e *encoder) vec(v fixed.Vec2) {
	e.fp(v.X)
	e.fp(v.Y)
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) u32s(vs []uint32) {
	e.u32(uint32(len(vs)))
	for _, v := range vs {
		e.u32(v)
	}
}

func (e *encoder) state(in StateInput) {
	e.u32(HashLayoutVersion)
	e.u32(in.Tick)
	e.u32(in.RNG)

	e.fp(in.FortressHP)
	e.fp(in.FortressMaxHP)
	e.u32(in.FortressCooldown)

	e.u32(in.Wave)
	e.u32(in.WaveSpawned)
	e.u32(in.WaveQuota)
	e.u32(in.NextSpawnTick)
	e.u32(in.PendingPressure)

	e.bool(in.InChoice)
	e.u32(in.ChoiceWave)
	e.u32s(in.ChoiceOptions)

	e.u32s(in.Relics)

	e.u32(in.Kills)
	e.u32(in.Leaked)
	e.i32(in.Score)
	e.i32(in.Gold)

	e.bool(in.Ended)
	e.u8(in.Outcome)

	e.u32(uint32(len(in.Enemies)))
	for _, en := range in.Enemies {
		e.u32(en.ID)
		e.u8(en.Kind)
		e.vec(en.Pos)
		e.fp(en.HP)
		e.u32(en.SlowTicks)
		e.u32(en.BurnTicks)
	}

	e.u32(uint32(len(in.Heroes)))
	for _, h := range in.Heroes {
		e.u32(h.ID)
		e.u8(h.Kind)
		e.vec(h.Pos)
		e.vec(h.MoveTarget)
		e.bool(h.Moving)
		e.u8(h.Level)
		e.u32(h.Cooldown)
		e.u32(h.SkillReadyTick)
	}

	e.u32(uint32(len(in.Projectiles)))
	for _, p := range in.Projectiles {
		e.u32(p.ID)
		e.u32(p.TargetID)
		e.vec(p.Pos)
		e.fp(p.Speed)
		e.fp(p.Damage)
		e.u32(p.BurnTicks)
		e.u32(p.SlowTicks)
	}
}
