package engine

import (
	"towerproof.dev/internal/sim/fixed"
)

// Step advances exactly one tick. Order of one tick t:
//
//  1. events scheduled for t (stale ones dropped)
//  2. while a relic choice is pending, combat is frozen: skip to 10
//  3. spawner
//  4. hero movement
//  5. enemy movement; contact damages the fortress and removes the enemy (leak)
//  6. targeting and attacks: fortress first, then heroes by ascending ID
//  7. projectile flight and hits
//  8. status effects (burn, slow, fortress regeneration)
//  9. removals with kill credit, defeat check, wave-end check
//  10. checkpoints for t, then Tick = t+1
//
// Once the run has ended Step does nothing.
func (s *Simulation) Step() {
	if s.st.Ended {
		return
	}
	t := s.st.Tick
	s.applyDueEvents(t)

	boundary := false
	if !s.st.InChoice {
		boundary = s.resolveCombat(t)
	}

	s.recordCheckpoints(t, boundary)
	s.st.Tick = t + 1
}

// resolveCombat runs steps 3-9 and reports whether t closed a wave.
func (s *Simulation) resolveCombat(t uint32) bool {
	s.spawn(t)
	s.moveHeroes()
	s.moveEnemies()
	s.attack()
	s.resolveProjectiles()
	s.applyStatus(t)
	s.removeDead()

	if s.st.FortressHP <= 0 {
		s.st.FortressHP = 0
		s.end(OutcomeDefeat)
		return false
	}
	return s.checkWaveEnd(t)
}

func (s *Simulation) end(o Outcome) {
	s.st.Ended = true
	s.st.Outcome = o
	s.st.Projectiles = s.st.Projectiles[:0]
}

func (s *Simulation) moveHeroes() {
	for i := range s.st.Heroes {
		h := &s.st.Heroes[i]
		if !h.Moving {
			continue
		}
		next, arrived := fixed.MoveTowards(h.Pos, h.MoveTarget, heroMoveSpeed)
		h.Pos = next
		if arrived {
			h.Moving = false
		}
	}
}

func (s *Simulation) moveEnemies() {
	st := &s.st
	origin := fixed.Vec2{}
	reach := fixed.Mul(s.cfg.FortressRadius, s.cfg.FortressRadius)
	kept := st.Enemies[:0]
	for _, e := range st.Enemies {
		a := e.Kind.archetype()
		speed := a.Speed
		if e.SlowTicks > 0 {
			speed = fixed.Mul(speed, fixed.Half)
		}
		e.Pos, _ = fixed.MoveTowards(e.Pos, origin, speed)
		if fixed.LengthSq(e.Pos) <= reach {
			st.FortressHP -= a.ContactDamage
			st.Leaked++
			continue
		}
		kept = append(kept, e)
	}
	st.Enemies = kept
}

// pickTarget returns the live enemy within r of from that is closest to the fortress;
// ties go to the lower ID.
func (s *Simulation) pickTarget(from fixed.Vec2, r fixed.FP) (uint32, bool) {
	rangeSq := fixed.Mul(r, r)
	best := -1
	var bestDist fixed.FP
	for i := range s.st.Enemies {
		e := &s.st.Enemies[i]
		if e.HP <= 0 || fixed.DistanceSq(from, e.Pos) > rangeSq {
			continue
		}
		d := fixed.LengthSq(e.Pos)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, false
	}
	return s.st.Enemies[best].ID, true
}

func (s *Simulation) attack() {
	st := &s.st
	if st.FortressCooldown > 0 {
		st.FortressCooldown--
	} else if target, ok := s.pickTarget(fixed.Vec2{}, s.cfg.FortressRange+st.mods.RangeBonus); ok {
		dmg := fixed.Permille(s.cfg.FortressBaseDamage, st.mods.DamagePermille)
		s.fire(fixed.Vec2{}, target, dmg, heroArchetype{})
		st.FortressCooldown = st.mods.cooldown(s.cfg.FortressCooldownTicks)
	}

	for i := range st.Heroes {
		h := &st.Heroes[i]
		if h.Cooldown > 0 {
			h.Cooldown--
			continue
		}
		target, ok := s.pickTarget(h.Pos, s.heroRange(h))
		if !ok {
			continue
		}
		a := h.Kind.archetype()
		s.fire(h.Pos, target, s.heroDamage(h), a)
		h.Cooldown = st.mods.cooldown(a.CooldownTicks)
	}
}

// fire spawns a homing projectile. On-hit effects are the stronger of the shooter's
// own and the relic-granted ones.
func (s *Simulation) fire(from fixed.Vec2, target uint32, dmg fixed.FP, shooter heroArchetype) {
	st := &s.st
	burn, slow := shooter.BurnTicks, shooter.SlowTicks
	if st.mods.IgniteTicks > burn {
		burn = st.mods.IgniteTicks
	}
	if st.mods.ChillTicks > slow {
		slow = st.mods.ChillTicks
	}
	st.Projectiles = append(st.Projectiles, Projectile{
		ID:        st.allocID(),
		TargetID:  target,
		Pos:       from,
		Speed:     s.cfg.ProjectileSpeed,
		Damage:    dmg,
		BurnTicks: burn,
		SlowTicks: slow,
	})
}

func (s *Simulation) resolveProjectiles() {
	st := &s.st
	kept := st.Projectiles[:0]
	for _, p := range st.Projectiles {
		i := st.enemyIndex(p.TargetID)
		if i < 0 || st.Enemies[i].HP <= 0 {
			continue // fizzle
		}
		e := &st.Enemies[i]
		next, hit := fixed.MoveTowards(p.Pos, e.Pos, p.Speed)
		if !hit {
			p.Pos = next
			kept = append(kept, p)
			continue
		}
		e.HP -= p.Damage
		if p.BurnTicks > e.BurnTicks {
			e.BurnTicks = p.BurnTicks
		}
		if p.SlowTicks > e.SlowTicks {
			e.SlowTicks = p.SlowTicks
		}
	}
	st.Projectiles = kept
}

func (s *Simulation) applyStatus(t uint32) {
	st := &s.st
	for i := range st.Enemies {
		e := &st.Enemies[i]
		if e.BurnTicks > 0 {
			e.HP -= burnDamagePerTick
			e.BurnTicks--
		}
		if e.SlowTicks > 0 {
			e.SlowTicks--
		}
	}
	if every := st.mods.RegenEvery; every > 0 && t%every == 0 && st.FortressHP > 0 {
		st.FortressHP = fixed.Min(st.FortressHP+fixed.One, st.FortressMaxHP)
	}
}

func (s *Simulation) removeDead() {
	st := &s.st
	kept := st.Enemies[:0]
	for _, e := range st.Enemies {
		if e.HP > 0 {
			kept = append(kept, e)
			continue
		}
		a := e.Kind.archetype()
		st.Kills++
		st.Score += a.Score
		st.Gold += a.Bounty + st.mods.BountyBonus
		if e.Kind != EnemySwarmling {
			st.pressureOut++
		}
	}
	st.Enemies = kept
}
