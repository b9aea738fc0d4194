package engine

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"towerproof.dev/internal/sim/fixed"
)

// SimVersion identifies the simulation rules, the content tables and the checkpoint
// hash layout together. A replay recorded under another version can never verify.
const SimVersion = 1

// MaxHeroes bounds the roster so hostile configs cannot blow up per-tick work.
const MaxHeroes = 8

var ErrVersionMismatch = errors.New("engine: simulation version mismatch")

// HeroSpec places one hero at run start.
type HeroSpec struct {
	Kind HeroKind   `json:"kind"`
	Pos  fixed.Vec2 `json:"pos"`
}

// Config is the complete, deterministic parameter set of a run. Fixed-point fields
// travel as raw Q16.16 words.
type Config struct {
	Version int `json:"version"`

	FortressBaseHP        fixed.FP `json:"fortress_base_hp"`
	FortressBaseDamage    fixed.FP `json:"fortress_base_damage"`
	FortressRange         fixed.FP `json:"fortress_range"`
	FortressRadius        fixed.FP `json:"fortress_radius"`
	FortressCooldownTicks uint32   `json:"fortress_cooldown_ticks"`
	ProjectileSpeed       fixed.FP `json:"projectile_speed"`

	// Arena: enemies spawn at x=SpawnDistance, y in [-ArenaHalfWidth, ArenaHalfWidth]
	// and walk to the fortress at the origin.
	SpawnDistance  fixed.FP `json:"spawn_distance"`
	ArenaHalfWidth fixed.FP `json:"arena_half_width"`

	WaveCount            uint32 `json:"wave_count"`
	WaveStartDelayTicks  uint32 `json:"wave_start_delay_ticks"`
	SpawnIntervalTicks   uint32 `json:"spawn_interval_ticks"`
	EnemiesPerWave       uint32 `json:"enemies_per_wave"`
	EnemiesPerWaveGrowth uint32 `json:"enemies_per_wave_growth"`
	WaveHPGrowthPermille int32  `json:"wave_hp_growth_permille"`
	WaveClearBonus       int32  `json:"wave_clear_bonus"`
	ChoiceOptions        uint32 `json:"choice_options"`

	StartingGold    int32 `json:"starting_gold"`
	UpgradeBaseCost int32 `json:"upgrade_base_cost"`

	CheckpointIntervalTicks uint32 `json:"checkpoint_interval_ticks"`

	Heroes []HeroSpec `json:"heroes,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: SimVersion,

		FortressBaseHP:        fixed.FromInt(100),
		FortressBaseDamage:    fixed.FromInt(4),
		FortressRange:         fixed.FromInt(9),
		FortressRadius:        fixed.FromRatio(3, 2),
		FortressCooldownTicks: 15,
		ProjectileSpeed:       fixed.FromRatio(3, 5),

		SpawnDistance:  fixed.FromInt(24),
		ArenaHalfWidth: fixed.FromInt(6),

		WaveCount:            10,
		WaveStartDelayTicks:  40,
		SpawnIntervalTicks:   12,
		EnemiesPerWave:       6,
		EnemiesPerWaveGrowth: 2,
		WaveHPGrowthPermille: 150,
		WaveClearBonus:       25,
		ChoiceOptions:        3,

		StartingGold:    10,
		UpgradeBaseCost: 15,

		CheckpointIntervalTicks: 100,

		Heroes: []HeroSpec{
			{Kind: HeroArcher, Pos: fixed.VInt(4, 2)},
			{Kind: HeroFrost, Pos: fixed.VInt(4, -2)},
		},
	}
}

// Validate rejects configs the engine cannot run safely. Gameplay-hostile but
// well-formed values (zero damage, one wave) are accepted.
func (c Config) Validate() error {
	if c.Version != SimVersion {
		return fmt.Errorf("%w: config has %d, engine runs %d", ErrVersionMismatch, c.Version, SimVersion)
	}
	if c.FortressBaseHP <= 0 {
		return fmt.Errorf("config: fortress_base_hp must be > 0")
	}
	if c.FortressBaseDamage < 0 || c.FortressRange < 0 || c.FortressRadius < 0 {
		return fmt.Errorf("config: fortress damage, range and radius must be >= 0")
	}
	if c.FortressCooldownTicks == 0 {
		return fmt.Errorf("config: fortress_cooldown_ticks must be > 0")
	}
	if c.ProjectileSpeed <= 0 {
		return fmt.Errorf("config: projectile_speed must be > 0")
	}
	// Squared distances must fit in Q16.16.
	limit := fixed.FromInt(64)
	if c.SpawnDistance <= 0 || c.SpawnDistance > limit || c.ArenaHalfWidth < 0 || c.ArenaHalfWidth > limit {
		return fmt.Errorf("config: arena must satisfy 0 < spawn_distance <= 64 and 0 <= arena_half_width <= 64")
	}
	if c.FortressRange > limit {
		return fmt.Errorf("config: fortress_range must be <= 64")
	}
	if c.WaveCount == 0 {
		return fmt.Errorf("config: wave_count must be > 0")
	}
	if c.SpawnIntervalTicks == 0 {
		return fmt.Errorf("config: spawn_interval_ticks must be > 0")
	}
	if c.EnemiesPerWave == 0 {
		return fmt.Errorf("config: enemies_per_wave must be > 0")
	}
	if c.WaveHPGrowthPermille < 0 {
		return fmt.Errorf("config: wave_hp_growth_permille must be >= 0")
	}
	if c.ChoiceOptions == 0 || int(c.ChoiceOptions) > len(relicPool) {
		return fmt.Errorf("config: choice_options must be in [1,%d]", len(relicPool))
	}
	if c.UpgradeBaseCost < 0 || c.StartingGold < 0 {
		return fmt.Errorf("config: gold values must be >= 0")
	}
	if len(c.Heroes) > MaxHeroes {
		return fmt.Errorf("config: at most %d heroes", MaxHeroes)
	}
	for i, h := range c.Heroes {
		if !h.Kind.valid() {
			return fmt.Errorf("config: heroes[%d]: unknown kind %d", i, h.Kind)
		}
		if !c.inArena(h.Pos) {
			return fmt.Errorf("config: heroes[%d]: position outside arena", i)
		}
	}
	return nil
}

// Equal reports whether two configs describe the same rules. A nil and an empty hero
// list are equal.
func (c Config) Equal(o Config) bool {
	if !slices.Equal(c.Heroes, o.Heroes) {
		return false
	}
	c.Heroes, o.Heroes = nil, nil
	return reflect.DeepEqual(c, o)
}

func (c Config) inArena(p fixed.Vec2) bool {
	return p.X >= 0 && p.X <= c.SpawnDistance && fixed.Abs(p.Y) <= c.ArenaHalfWidth
}

func (c Config) clone() Config {
	c.Heroes = append([]HeroSpec(nil), c.Heroes...)
	return c
}
