// Package tuning loads simulation parameters from YAML. Fractional values are written
// in thousandths ("_milli") so the file never carries floats into the simulation.
package tuning

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"towerproof.dev/internal/sim/engine"
	"towerproof.dev/internal/sim/fixed"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`
	SimVersion      int    `yaml:"sim_version"`

	Fortress Fortress `yaml:"fortress"`
	Arena    Arena    `yaml:"arena"`
	Waves    Waves    `yaml:"waves"`
	Economy  Economy  `yaml:"economy"`
	Heroes   []Hero   `yaml:"heroes"`

	CheckpointEveryTicks int `yaml:"checkpoint_every_ticks"`

	Verifier Verifier `yaml:"verifier"`
}

type Fortress struct {
	HP                   int `yaml:"hp"`
	DamageMilli          int `yaml:"damage_milli"`
	RangeMilli           int `yaml:"range_milli"`
	RadiusMilli          int `yaml:"radius_milli"`
	CooldownTicks        int `yaml:"cooldown_ticks"`
	ProjectileSpeedMilli int `yaml:"projectile_speed_milli"`
}

type Arena struct {
	SpawnDistanceMilli int `yaml:"spawn_distance_milli"`
	HalfWidthMilli     int `yaml:"half_width_milli"`
}

type Waves struct {
	Count            int `yaml:"count"`
	StartDelayTicks  int `yaml:"start_delay_ticks"`
	SpawnEveryTicks  int `yaml:"spawn_every_ticks"`
	Enemies          int `yaml:"enemies"`
	EnemiesGrowth    int `yaml:"enemies_growth"`
	HPGrowthPermille int `yaml:"hp_growth_permille"`
	ClearBonus       int `yaml:"clear_bonus"`
	ChoiceOptions    int `yaml:"choice_options"`
}

type Economy struct {
	StartingGold    int `yaml:"starting_gold"`
	UpgradeBaseCost int `yaml:"upgrade_base_cost"`
}

type Hero struct {
	Kind   string `yaml:"kind"`
	XMilli int    `yaml:"x_milli"`
	YMilli int    `yaml:"y_milli"`
}

// Verifier holds server-side replay limits; they never reach the simulation.
type Verifier struct {
	MaxTicks   int `yaml:"max_ticks"`
	AuditCount int `yaml:"audit_count"`
}

// Defaults mirrors engine.DefaultConfig.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		SimVersion:      engine.SimVersion,
		Fortress: Fortress{
			HP:                   100,
			DamageMilli:          4000,
			RangeMilli:           9000,
			RadiusMilli:          1500,
			CooldownTicks:        15,
			ProjectileSpeedMilli: 600,
		},
		Arena: Arena{SpawnDistanceMilli: 24000, HalfWidthMilli: 6000},
		Waves: Waves{
			Count:            10,
			StartDelayTicks:  40,
			SpawnEveryTicks:  12,
			Enemies:          6,
			EnemiesGrowth:    2,
			HPGrowthPermille: 150,
			ClearBonus:       25,
			ChoiceOptions:    3,
		},
		Economy: Economy{StartingGold: 10, UpgradeBaseCost: 15},
		Heroes: []Hero{
			{Kind: "archer", XMilli: 4000, YMilli: 2000},
			{Kind: "frost", XMilli: 4000, YMilli: -2000},
		},
		CheckpointEveryTicks: 100,
		Verifier:             Verifier{MaxTicks: 200000, AuditCount: 3},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Verifier.MaxTicks < 0 || t.Verifier.AuditCount < 0 {
		return fmt.Errorf("verifier limits must be >= 0")
	}
	cfg, err := t.SimConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// SimConfig converts the tuning into an engine config.
func (t Tuning) SimConfig() (engine.Config, error) {
	var conv converter
	cfg := engine.Config{
		Version: t.SimVersion,

		FortressBaseHP:        conv.units("fortress.hp", t.Fortress.HP),
		FortressBaseDamage:    conv.milli("fortress.damage_milli", t.Fortress.DamageMilli),
		FortressRange:         conv.milli("fortress.range_milli", t.Fortress.RangeMilli),
		FortressRadius:        conv.milli("fortress.radius_milli", t.Fortress.RadiusMilli),
		FortressCooldownTicks: conv.u32("fortress.cooldown_ticks", t.Fortress.CooldownTicks),
		ProjectileSpeed:       conv.milli("fortress.projectile_speed_milli", t.Fortress.ProjectileSpeedMilli),

		SpawnDistance:  conv.milli("arena.spawn_distance_milli", t.Arena.SpawnDistanceMilli),
		ArenaHalfWidth: conv.milli("arena.half_width_milli", t.Arena.HalfWidthMilli),

		WaveCount:            conv.u32("waves.count", t.Waves.Count),
		WaveStartDelayTicks:  conv.u32("waves.start_delay_ticks", t.Waves.StartDelayTicks),
		SpawnIntervalTicks:   conv.u32("waves.spawn_every_ticks", t.Waves.SpawnEveryTicks),
		EnemiesPerWave:       conv.u32("waves.enemies", t.Waves.Enemies),
		EnemiesPerWaveGrowth: conv.u32("waves.enemies_growth", t.Waves.EnemiesGrowth),
		WaveHPGrowthPermille: conv.i32("waves.hp_growth_permille", t.Waves.HPGrowthPermille),
		WaveClearBonus:       conv.i32("waves.clear_bonus", t.Waves.ClearBonus),
		ChoiceOptions:        conv.u32("waves.choice_options", t.Waves.ChoiceOptions),

		StartingGold:    conv.i32("economy.starting_gold", t.Economy.StartingGold),
		UpgradeBaseCost: conv.i32("economy.upgrade_base_cost", t.Economy.UpgradeBaseCost),

		CheckpointIntervalTicks: conv.u32("checkpoint_every_ticks", t.CheckpointEveryTicks),
	}
	for i, h := range t.Heroes {
		var kind engine.HeroKind
		if err := kind.UnmarshalText([]byte(h.Kind)); err != nil {
			return engine.Config{}, fmt.Errorf("heroes[%d]: %w", i, err)
		}
		cfg.Heroes = append(cfg.Heroes, engine.HeroSpec{
			Kind: kind,
			Pos:  fixed.V(conv.milli("heroes.x_milli", h.XMilli), conv.milli("heroes.y_milli", h.YMilli)),
		})
	}
	if conv.err != nil {
		return engine.Config{}, conv.err
	}
	return cfg, nil
}

// converter keeps the first range error so SimConfig reads as a flat table.
type converter struct{ err error }

// maxMilli keeps milli<<16 inside int64 with room, and the result inside Q16.16.
const maxMilli = 32_000_000

func (c *converter) fail(key string, v int) {
	if c.err == nil {
		c.err = fmt.Errorf("%s: %d out of range", key, v)
	}
}

func (c *converter) i32(key string, v int) int32 {
	if int64(v) < math.MinInt32 || int64(v) > math.MaxInt32 {
		c.fail(key, v)
		return 0
	}
	return int32(v)
}

func (c *converter) u32(key string, v int) uint32 {
	if v < 0 || int64(v) > math.MaxUint32 {
		c.fail(key, v)
		return 0
	}
	return uint32(v)
}

func (c *converter) milli(key string, v int) fixed.FP {
	if v < -maxMilli || v > maxMilli {
		c.fail(key, v)
		return 0
	}
	return fixed.FromRatio(int32(v), 1000)
}

func (c *converter) units(key string, v int) fixed.FP {
	if v < -32767 || v > 32767 {
		c.fail(key, v)
		return 0
	}
	return fixed.FromInt(int32(v))
}
