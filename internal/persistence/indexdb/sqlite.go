// Package indexdb keeps a queryable SQLite read-model of replay verdicts. The JSONL
// verdict log stays the source of truth; the index may drop writes under pressure.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"towerproof.dev/internal/sim/replay"
	"towerproof.dev/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan Verdict
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropVerdictTotal  atomic.Uint64
	writeVerdictTotal atomic.Uint64
	writeErrorTotal   atomic.Uint64
}

// Verdict is one row of the verdicts table.
type Verdict struct {
	RunID         string    `json:"run_id"`
	Bundle        string    `json:"bundle"`
	RecordedAt    time.Time `json:"recorded_at"`
	Seed          int32     `json:"seed"`
	SimVersion    int       `json:"sim_version"`
	Success       bool      `json:"success"`
	Reason        string    `json:"reason,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	FinalHash     uint32    `json:"final_hash"`
	Score         int32     `json:"score"`
	Outcome       string    `json:"outcome,omitempty"`
	Ticks         uint32    `json:"ticks"`
	EventsApplied uint32    `json:"events_applied"`
	EventsDropped uint32    `json:"events_dropped"`
	AuditTicks    []uint32  `json:"audit_ticks,omitempty"`
}

// FromResult builds a row from a verifier result.
func FromResult(runID, bundle string, seed int32, simVersion int, audits []uint32, res replay.Result) Verdict {
	return Verdict{
		RunID:         runID,
		Bundle:        bundle,
		RecordedAt:    time.Now().UTC(),
		Seed:          seed,
		SimVersion:    simVersion,
		Success:       res.Success,
		Reason:        res.Reason,
		Detail:        res.Detail,
		FinalHash:     res.FinalHash,
		Score:         res.Score,
		Outcome:       res.Outcome,
		Ticks:         res.TicksSimulated,
		EventsApplied: res.EventsApplied,
		EventsDropped: res.EventsDropped,
		AuditTicks:    append([]uint32(nil), audits...),
	}
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropVerdictTotal  uint64 `json:"drop_verdict_total"`
	WriteVerdictTotal uint64 `json:"write_verdict_total"`
	WriteErrorTotal   uint64 `json:"write_error_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan Verdict, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tunings (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			bundle TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			sim_version INTEGER NOT NULL,
			success INTEGER NOT NULL,
			reason TEXT NOT NULL,
			detail TEXT NOT NULL,
			final_hash INTEGER NOT NULL,
			score INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			events_applied INTEGER NOT NULL,
			events_dropped INTEGER NOT NULL,
			audit_ticks TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_reason ON verdicts(reason, id);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordVerdict queues v without blocking the verifier.
func (s *SQLiteIndex) RecordVerdict(v Verdict) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- v:
	default:
		// Drop if the indexer falls behind; the JSONL verdict log remains the source of truth.
		s.dropVerdictTotal.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropVerdictTotal:  s.dropVerdictTotal.Load(),
		WriteVerdictTotal: s.writeVerdictTotal.Load(),
		WriteErrorTotal:   s.writeErrorTotal.Load(),
	}
}

// UpsertTuning stores the tuning the verifier runs with, keyed by content digest, and
// returns the digest.
func (s *SQLiteIndex) UpsertTuning(ctx context.Context, tune tuning.Tuning) (string, error) {
	b, err := json.Marshal(tune)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tunings(digest,json,updated_at) VALUES(?,?,?)`,
		digest, string(b), now); err != nil {
		return "", err
	}
	return digest, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	insert, err := s.db.Prepare(`INSERT INTO verdicts(run_id,bundle,recorded_at,seed,sim_version,success,reason,detail,final_hash,score,outcome,ticks,events_applied,events_dropped,audit_ticks) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		for range s.ch {
			s.writeErrorTotal.Add(1)
		}
		return
	}
	defer insert.Close()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrorTotal.Add(uint64(opCount))
		} else {
			s.writeVerdictTotal.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for v := range s.ch {
		if tx == nil {
			txx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				s.writeErrorTotal.Add(1)
				continue
			}
			tx = txx
			lastCommit = time.Now()
		}
		audits, _ := json.Marshal(v.AuditTicks)
		if _, err := tx.Stmt(insert).Exec(
			v.RunID, v.Bundle, v.RecordedAt.UTC().Format(time.RFC3339Nano),
			int64(v.Seed), v.SimVersion, boolInt(v.Success), v.Reason, v.Detail,
			int64(v.FinalHash), int64(v.Score), v.Outcome, int64(v.Ticks),
			int64(v.EventsApplied), int64(v.EventsDropped), string(audits),
		); err != nil {
			s.writeErrorTotal.Add(1)
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
