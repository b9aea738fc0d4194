package engine

import (
	"towerproof.dev/internal/sim/fixed"
	"towerproof.dev/internal/sim/rng"
)

func (s *Simulation) startWave(w uint32, t uint32) {
	st := &s.st
	st.Wave = w
	st.WaveSpawned = 0
	st.WaveQuota = s.cfg.EnemiesPerWave + s.cfg.EnemiesPerWaveGrowth*(w-1)
	st.NextSpawnTick = t + s.cfg.WaveStartDelayTicks
}

// spawn releases queued pressure swarmlings, then at most one wave enemy.
func (s *Simulation) spawn(t uint32) {
	st := &s.st
	for ; st.PendingPressure > 0; st.PendingPressure-- {
		s.spawnEnemy(EnemySwarmling)
	}
	if st.WaveSpawned >= st.WaveQuota || t < st.NextSpawnTick {
		return
	}
	s.spawnEnemy(s.rollEnemyKind())
	st.WaveSpawned++
	st.NextSpawnTick = t + s.cfg.SpawnIntervalTicks
}

// rollEnemyKind: brutes appear from wave 2, 10% more likely per wave, capped at 50%.
func (s *Simulation) rollEnemyKind() EnemyKind {
	chance := int32(10 * (s.st.Wave - 1))
	if chance > 50 {
		chance = 50
	}
	if s.rng.NextInt(0, 99) < chance {
		return EnemyBrute
	}
	return EnemyRunner
}

func (s *Simulation) spawnEnemy(kind EnemyKind) {
	st := &s.st
	a := kind.archetype()
	hw := s.cfg.ArenaHalfWidth.Raw()
	y := fixed.FP(s.rng.NextInt(-hw, hw))
	hp := fixed.Permille(a.HP, 1000+s.cfg.WaveHPGrowthPermille*int32(st.Wave-1))
	st.Enemies = append(st.Enemies, Enemy{
		ID:    st.allocID(),
		Kind:  kind,
		Pos:   fixed.V(s.cfg.SpawnDistance, y),
		HP:    hp,
		MaxHP: hp,
	})
}

// checkWaveEnd closes the wave once its quota is spawned and the field is clear.
func (s *Simulation) checkWaveEnd(t uint32) bool {
	st := &s.st
	if st.WaveSpawned < st.WaveQuota || len(st.Enemies) > 0 || st.PendingPressure > 0 {
		return false
	}
	st.Score += s.cfg.WaveClearBonus * int32(st.Wave)
	st.Projectiles = st.Projectiles[:0]
	if st.Wave >= s.cfg.WaveCount {
		s.end(OutcomeVictory)
		return true
	}
	s.openChoice(t)
	return true
}

// openChoice offers ChoiceOptions unowned relics drawn from the pinned pool. With
// nothing left to offer the next wave starts directly.
func (s *Simulation) openChoice(t uint32) {
	st := &s.st
	avail := make([]RelicID, 0, len(relicPool))
	for _, r := range relicPool {
		if !st.owns(r) {
			avail = append(avail, r)
		}
	}
	if len(avail) == 0 {
		s.startWave(st.Wave+1, t)
		return
	}
	st.InChoice = true
	st.PendingChoice = PendingChoice{
		Wave:    st.Wave,
		Options: rng.PickN(s.rng, avail, int(s.cfg.ChoiceOptions)),
	}
}

func (s *Simulation) acquireRelic(r RelicID) {
	st := &s.st
	st.Relics = append(st.Relics, r)
	st.mods = deriveModifiers(st.Relics)
	if r == RelicRampart {
		bonus := fixed.FromInt(20)
		st.FortressMaxHP += bonus
		st.FortressHP = fixed.Min(st.FortressHP+bonus, st.FortressMaxHP)
	}
}
