package engine

import (
	"towerproof.dev/internal/sim/fixed"
)

// View is a read-only projection of the state for renderers and tooling. Its JSON
// shape is stable; mutating it has no effect on the simulation.
type View struct {
	Tick   uint32 `json:"tick"`
	RNG    uint32 `json:"rng"`
	Wave   uint32 `json:"wave"`
	Waves  uint32 `json:"waves"`
	Ended  bool   `json:"ended"`
	Result string `json:"outcome"`

	FortressHP    fixed.FP `json:"fortress_hp"`
	FortressMaxHP fixed.FP `json:"fortress_max_hp"`

	InChoice bool           `json:"in_choice"`
	Choice   *PendingChoice `json:"choice,omitempty"`
	Relics   []RelicID      `json:"relics"`

	Kills  uint32 `json:"kills"`
	Leaked uint32 `json:"leaked"`
	Score  int32  `json:"score"`
	Gold   int32  `json:"gold"`

	Enemies     []Enemy      `json:"enemies"`
	Heroes      []Hero       `json:"heroes"`
	Projectiles []Projectile `json:"projectiles"`
}

func (s *Simulation) State() View {
	st := &s.st
	v := View{
		Tick:          st.Tick,
		RNG:           s.rng.State(),
		Wave:          st.Wave,
		Waves:         s.cfg.WaveCount,
		Ended:         st.Ended,
		Result:        st.Outcome.String(),
		FortressHP:    st.FortressHP,
		FortressMaxHP: st.FortressMaxHP,
		InChoice:      st.InChoice,
		Relics:        append([]RelicID{}, st.Relics...),
		Kills:         st.Kills,
		Leaked:        st.Leaked,
		Score:         st.Score,
		Gold:          st.Gold,
		Enemies:       append([]Enemy{}, st.Enemies...),
		Heroes:        append([]Hero{}, st.Heroes...),
		Projectiles:   append([]Projectile{}, st.Projectiles...),
	}
	if st.InChoice {
		v.Choice = &PendingChoice{
			Wave:    st.PendingChoice.Wave,
			Options: append([]RelicID(nil), st.PendingChoice.Options...),
		}
	}
	return v
}
