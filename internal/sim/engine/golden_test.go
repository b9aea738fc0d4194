package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/fixed"
)

type goldenRun struct {
	Name      string                  `json:"name"`
	Seed      int32                   `json:"seed"`
	Ticks     uint32                  `json:"ticks"`
	Leaked    uint32                  `json:"leaked"`
	Chain     []checkpoint.Checkpoint `json:"chain"`
	ChainHead uint32                  `json:"chain_head"`
	FinalHash uint32                  `json:"final_hash"`
}

// goldenConfigs maps golden run names to the config they were recorded with.
var goldenConfigs = map[string]func() Config{
	"seed42_defeat": func() Config {
		cfg := DefaultConfig()
		cfg.FortressBaseHP = fixed.FromInt(10)
		cfg.FortressBaseDamage = 0
		return cfg
	},
}

// Pins content tables, step order and the hash layout together: any rule change that
// alters a recorded run fails here and needs a SimVersion bump.
func TestGoldenRuns(t *testing.T) {
	b, err := os.ReadFile(filepath.Join("testdata", "golden_runs.json"))
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var g struct {
		Runs []goldenRun `json:"runs"`
	}
	if err := json.Unmarshal(b, &g); err != nil {
		t.Fatalf("decode golden: %v", err)
	}
	if len(g.Runs) == 0 {
		t.Fatalf("golden file is empty")
	}
	for _, want := range g.Runs {
		mk, ok := goldenConfigs[want.Name]
		if !ok {
			t.Fatalf("%s: no config registered", want.Name)
		}
		s := mustNew(t, want.Seed, mk())
		runAuto(t, s, 0, 20000)

		if s.Tick() != want.Ticks || s.State().Leaked != want.Leaked {
			t.Fatalf("%s: tick=%d leaked=%d want %d/%d", want.Name, s.Tick(), s.State().Leaked, want.Ticks, want.Leaked)
		}
		chain := s.ChainCheckpoints()
		if len(chain) != len(want.Chain) {
			t.Fatalf("%s: %d chain links want %d", want.Name, len(chain), len(want.Chain))
		}
		for i := range chain {
			if chain[i] != want.Chain[i] {
				t.Fatalf("%s: link %d=%+v want %+v", want.Name, i, chain[i], want.Chain[i])
			}
		}
		if s.ChainHead() != want.ChainHead {
			t.Fatalf("%s: chain head=%08x want %08x", want.Name, s.ChainHead(), want.ChainHead)
		}
		if s.FinalHash() != want.FinalHash {
			t.Fatalf("%s: final hash=%08x want %08x", want.Name, s.FinalHash(), want.FinalHash)
		}
	}
}

func TestSeed42_FinalHashLiteral(t *testing.T) {
	s := mustNew(t, 42, goldenConfigs["seed42_defeat"]())
	runAuto(t, s, 0, 20000)
	if got := s.FinalHash(); got != 0x787bce39 {
		t.Fatalf("seed 42 final hash=%08x want 787bce39", got)
	}
}
