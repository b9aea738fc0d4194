package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"towerproof.dev/internal/persistence/runlog"
	"towerproof.dev/internal/platform/config"
	"towerproof.dev/internal/protocol"
	"towerproof.dev/internal/sim/autopilot"
	"towerproof.dev/internal/sim/tuning"
)

func main() {
	logger := log.New(os.Stdout, "[record] ", log.LstdFlags|log.Lmicroseconds)
	env, err := config.Load()
	if err != nil {
		logger.Fatalf("env: %v", err)
	}

	var (
		seed       = flag.Int("seed", 1, "run seed")
		tuningPath = flag.String("tuning", env.TuningPath, "tuning yaml (empty = built-in defaults)")
		pick       = flag.Int("pick", 0, "relic option index chosen at every choice")
		upgrade    = flag.Bool("upgrade", true, "upgrade heroes whenever gold allows")
		runID      = flag.String("run_id", "", "run id (default random uuid)")
		dataDir    = flag.String("data", env.DataDir, "data directory")
		out        = flag.String("out", "", "bundle path (default <data>/runs/<run_id>"+runlog.Ext+")")
		maxTicks   = flag.Uint("max_ticks", uint(env.MaxTicks), "stop runs that never end")
		auditList  = flag.String("audit", "", "comma separated audit ticks issued by the verifier")
	)
	flag.Parse()

	tune := tuning.Defaults()
	if *tuningPath != "" {
		tune, err = tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("tuning: %v", err)
		}
	}
	cfg, err := tune.SimConfig()
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	audits, err := config.ParseTicks(*auditList)
	if err != nil {
		logger.Fatalf("-audit: %v", err)
	}

	id := *runID
	if id == "" {
		id = uuid.NewString()
	}
	path := *out
	if path == "" {
		path = filepath.Join(*dataDir, "runs", id+runlog.Ext)
	}

	rec, err := autopilot.Play(int32(*seed), cfg, autopilot.Options{
		Pick:                  int32(*pick),
		UpgradeWhenAffordable: *upgrade,
		MaxTicks:              uint32(*maxTicks),
		AuditTicks:            audits,
	})
	if err != nil {
		logger.Fatalf("play: %v", err)
	}
	if !rec.Ended {
		logger.Printf("run did not end within %d ticks; recording partial run", rec.Ticks)
	}

	sub, err := protocol.NewSubmission(id, rec)
	if err != nil {
		logger.Fatalf("submission: %v", err)
	}
	if err := runlog.WriteBundle(path, sub); err != nil {
		logger.Fatalf("write bundle: %v", err)
	}
	logger.Printf("recorded %s seed=%d outcome=%s score=%d ticks=%d events=%d checkpoints=%d final=%08x",
		path, rec.Seed, rec.Outcome, rec.Score, rec.Ticks, len(rec.Events), len(rec.Checkpoints), rec.FinalHash)
}
