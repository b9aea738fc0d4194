package engine

import (
	"fmt"
	"strings"

	"towerproof.dev/internal/sim/fixed"
)

// Built-in content. These tables are part of SimVersion: changing any number here
// changes every recorded run.

type EnemyKind uint8

const (
	EnemyRunner EnemyKind = iota + 1
	EnemyBrute
	EnemySwarmling
)

type enemyArchetype struct {
	Name          string
	HP            fixed.FP
	Speed         fixed.FP // units per tick
	ContactDamage fixed.FP
	Score         int32
	Bounty        int32
}

var enemyArchetypes = [...]enemyArchetype{
	EnemyRunner:    {Name: "runner", HP: fixed.FromInt(6), Speed: fixed.FromRatio(3, 25), ContactDamage: fixed.FromInt(2), Score: 10, Bounty: 2},
	EnemyBrute:     {Name: "brute", HP: fixed.FromInt(20), Speed: fixed.FromRatio(1, 20), ContactDamage: fixed.FromInt(6), Score: 30, Bounty: 5},
	EnemySwarmling: {Name: "swarmling", HP: fixed.FromInt(3), Speed: fixed.FromRatio(4, 25), ContactDamage: fixed.FromInt(1), Score: 4, Bounty: 1},
}

func (k EnemyKind) archetype() enemyArchetype {
	if int(k) >= len(enemyArchetypes) {
		return enemyArchetype{}
	}
	return enemyArchetypes[k]
}

func (k EnemyKind) String() string { return k.archetype().Name }

type HeroKind uint8

const (
	HeroArcher HeroKind = iota + 1
	HeroFrost
	HeroPyro
)

type heroArchetype struct {
	Name           string
	DamagePermille int32 // of Config.FortressBaseDamage
	Range          fixed.FP
	CooldownTicks  uint32
	BurnTicks      uint32
	SlowTicks      uint32
}

var heroArchetypes = [...]heroArchetype{
	HeroArcher: {Name: "archer", DamagePermille: 1000, Range: fixed.FromInt(8), CooldownTicks: 10},
	HeroFrost:  {Name: "frost", DamagePermille: 500, Range: fixed.FromInt(7), CooldownTicks: 14, SlowTicks: 30},
	HeroPyro:   {Name: "pyro", DamagePermille: 600, Range: fixed.FromInt(6), CooldownTicks: 16, BurnTicks: 40},
}

const (
	HeroMaxLevel           = 5
	heroLevelDamagePermill = 250
	SkillCooldownTicks     = 200
	skillDamageMultiplier  = 3
)

var (
	heroMoveSpeed     = fixed.FromRatio(1, 10)
	burnDamagePerTick = fixed.FromRatio(1, 10)
)

func (k HeroKind) valid() bool { return k >= HeroArcher && int(k) < len(heroArchetypes) }

func (k HeroKind) archetype() heroArchetype {
	if !k.valid() {
		return heroArchetype{}
	}
	return heroArchetypes[k]
}

func (k HeroKind) String() string { return k.archetype().Name }

func (k HeroKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("unknown hero kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *HeroKind) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i := range heroArchetypes {
		if i > 0 && heroArchetypes[i].Name == name {
			*k = HeroKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown hero kind %q", name)
}

type RelicID uint32

const (
	RelicWhetstone  RelicID = iota + 1 // +25% damage
	RelicRampart                       // +20 max fortress HP, healed immediately
	RelicQuickdraw                     // -20% attack cooldowns
	RelicLongbow                       // +2 range for fortress and heroes
	RelicEmber                         // every projectile ignites
	RelicPermafrost                    // every projectile chills
	RelicBounty                        // +1 gold per kill
	RelicMender                        // fortress regenerates 1 HP every 50 ticks
)

// relicPool is the pinned offer order used when drawing choices.
var relicPool = []RelicID{
	RelicWhetstone, RelicRampart, RelicQuickdraw, RelicLongbow,
	RelicEmber, RelicPermafrost, RelicBounty, RelicMender,
}

var relicNames = map[RelicID]string{
	RelicWhetstone:  "whetstone",
	RelicRampart:    "rampart",
	RelicQuickdraw:  "quickdraw",
	RelicLongbow:    "longbow",
	RelicEmber:      "ember",
	RelicPermafrost: "permafrost",
	RelicBounty:     "bounty",
	RelicMender:     "mender",
}

func (r RelicID) String() string {
	if n, ok := relicNames[r]; ok {
		return n
	}
	return fmt.Sprintf("relic(%d)", uint32(r))
}

// modifiers is derived from the owned relic list; it is recomputed, never hashed.
type modifiers struct {
	DamagePermille   int32
	CooldownPermille int32
	RangeBonus       fixed.FP
	IgniteTicks      uint32
	ChillTicks       uint32
	BountyBonus      int32
	RegenEvery       uint32
}

func deriveModifiers(relics []RelicID) modifiers {
	m := modifiers{DamagePermille: 1000, CooldownPermille: 1000}
	for _, r := range relics {
		switch r {
		case RelicWhetstone:
			m.DamagePermille += 250
		case RelicQuickdraw:
			m.CooldownPermille -= 200
		case RelicLongbow:
			m.RangeBonus += fixed.FromInt(2)
		case RelicEmber:
			m.IgniteTicks = 30
		case RelicPermafrost:
			m.ChillTicks = 20
		case RelicBounty:
			m.BountyBonus++
		case RelicMender:
			m.RegenEvery = 50
		}
	}
	if m.CooldownPermille < 400 {
		m.CooldownPermille = 400
	}
	return m
}

func (m modifiers) cooldown(base uint32) uint32 {
	cd := uint32((int64(base) * int64(m.CooldownPermille)) / 1000)
	if cd < 1 {
		cd = 1
	}
	return cd
}
