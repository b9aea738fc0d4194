package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"towerproof.dev/internal/persistence/indexdb"
	"towerproof.dev/internal/persistence/runlog"
	"towerproof.dev/internal/platform/config"
	"towerproof.dev/internal/protocol"
	"towerproof.dev/internal/sim/replay"
	"towerproof.dev/internal/sim/tuning"
)

type job struct {
	path   string
	sub    protocol.RunSubmissionMsg
	audits []uint32
	in     replay.Input
}

func main() {
	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags|log.Lmicroseconds)
	env, err := config.Load()
	if err != nil {
		logger.Fatalf("env: %v", err)
	}

	var (
		runPath    = flag.String("run", "", "bundle file or directory of bundles (default <data>/runs)")
		auditList  = flag.String("audit", "", "comma separated audit ticks issued to the client before recording (overrides -audit_count)")
		auditCount = flag.Int("audit_count", -1, "audit ticks picked per run (-1 = tuning/env default)")
		auditSeed  = flag.Uint("audit_seed", uint(env.AuditSeed), "verifier seed for audit selection")
		maxTicks   = flag.Uint("max_ticks", 0, "tick ceiling (0 = tuning/env default)")
		tuningPath = flag.String("tuning", env.TuningPath, "tuning yaml for verifier limits (empty = built-in defaults)")
		dataDir    = flag.String("data", env.DataDir, "data directory (verdict log)")
		indexPath  = flag.String("index", env.IndexPath, "sqlite verdict index (empty disables)")
		parallel   = flag.Int("parallel", env.Parallel, "runs verified concurrently")
		perFile    = flag.Int("verdicts_per_file", runlog.DefaultVerdictsPerFile, "verdicts per log part before rotating")
	)
	flag.Parse()

	tune := tuning.Defaults()
	if *tuningPath != "" {
		tune, err = tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("tuning: %v", err)
		}
	}
	// Runs are simulated under these rules; a bundle carrying any other
	// config fails with CONFIG_MISMATCH.
	rules, err := tune.SimConfig()
	if err == nil {
		err = rules.Validate()
	}
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}
	limit := uint32(*maxTicks)
	if limit == 0 {
		limit = uint32(tune.Verifier.MaxTicks)
	}
	if limit == 0 {
		limit = env.MaxTicks
	}
	count := *auditCount
	if count < 0 {
		count = tune.Verifier.AuditCount
	}
	fixedAudits, err := config.ParseTicks(*auditList)
	if err != nil {
		logger.Fatalf("-audit: %v", err)
	}

	src := *runPath
	if src == "" {
		src = filepath.Join(*dataDir, "runs")
	}
	paths, err := bundlePaths(src)
	if err != nil {
		logger.Fatalf("list bundles: %v", err)
	}
	if len(paths) == 0 {
		logger.Fatalf("no %s bundles in %s", runlog.Ext, src)
	}

	var (
		jobs      []job
		malformed int
	)
	for _, p := range paths {
		_, sub, err := runlog.ReadBundle(p)
		if err != nil {
			malformed++
			logger.Printf("%s: %s %v", filepath.Base(p), protocol.ErrProtoBadRequest, err)
			continue
		}
		audits := fixedAudits
		if audits == nil {
			audits = replay.PickAuditTicks(uint32(*auditSeed)^sub.FinalHash, sub.Checkpoints, count)
		}
		in, err := sub.Input(audits, limit)
		if err != nil {
			malformed++
			logger.Printf("%s: %s %v", filepath.Base(p), protocol.ErrProtoBadRequest, err)
			continue
		}
		in.Rules = &rules
		jobs = append(jobs, job{path: p, sub: sub, audits: audits, in: in})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	inputs := make([]replay.Input, len(jobs))
	for i := range jobs {
		inputs[i] = jobs[i].in
	}
	start := time.Now()
	results, err := replay.RunBatch(ctx, inputs, *parallel)
	if err != nil {
		logger.Fatalf("verify: %v", err)
	}

	vlog := runlog.NewVerdictLogger(*dataDir, *perFile)
	defer vlog.Close()

	var idx *indexdb.SQLiteIndex
	if *indexPath != "" {
		idx, err = indexdb.OpenSQLite(*indexPath)
		if err != nil {
			logger.Printf("index disabled: %v", err)
		} else {
			defer idx.Close()
			if digest, err := idx.UpsertTuning(ctx, tune); err != nil {
				logger.Printf("index tuning: %v", err)
			} else {
				logger.Printf("tuning digest=%s", digest[:12])
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for i, res := range results {
		j := jobs[i]
		v := protocol.NewVerdict(j.sub.RunID, res)
		if !res.Success {
			failed++
		}
		if err := enc.Encode(v); err != nil {
			logger.Printf("print verdict: %v", err)
		}
		entry := runlog.VerdictEntry{
			RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
			Bundle:     filepath.Base(j.path),
			Seed:       j.sub.Seed,
			AuditTicks: j.audits,
			Verdict:    v,
		}
		if err := vlog.WriteVerdict(entry); err != nil {
			logger.Printf("verdict log: %v", err)
		}
		if idx != nil {
			idx.RecordVerdict(indexdb.FromResult(j.sub.RunID, filepath.Base(j.path), j.sub.Seed, j.sub.SimVersion, j.audits, res))
		}
	}

	logger.Printf("verified=%d failed=%d malformed=%d parallel=%d elapsed=%s",
		len(results), failed, malformed, *parallel, time.Since(start).Round(time.Millisecond))
	if idx != nil {
		st := idx.Stats()
		logger.Printf("index queue=%d/%d dropped=%d", st.QueueDepth, st.QueueCapacity, st.DropVerdictTotal)
	}
	if failed > 0 || malformed > 0 {
		// os.Exit skips deferred closers.
		stop()
		_ = vlog.Close()
		if idx != nil {
			_ = idx.Close()
		}
		os.Exit(1)
	}
}

func bundlePaths(src string) ([]string, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return runlog.FindBundles(src)
	}
	return []string{src}, nil
}
