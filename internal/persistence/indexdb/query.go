package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// VerdictRow is a stored verdict as returned by queries.
type VerdictRow struct {
	ID int64 `json:"id"`
	Verdict
}

// Recent returns the newest verdicts first. An empty reason matches every row;
// reason "OK" matches successful runs.
func (s *SQLiteIndex) Recent(ctx context.Context, limit int, reason string) ([]VerdictRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id,run_id,bundle,recorded_at,seed,sim_version,success,reason,detail,final_hash,score,outcome,ticks,events_applied,events_dropped,audit_ticks FROM verdicts`
	args := []any{}
	switch reason {
	case "":
	case "OK":
		q += ` WHERE success=1`
	default:
		q += ` WHERE reason=?`
		args = append(args, reason)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VerdictRow
	for rows.Next() {
		r, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReasonCounts groups stored verdicts by failure reason; successful runs count under "OK".
func (s *SQLiteIndex) ReasonCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE WHEN success=1 THEN 'OK' ELSE reason END AS r, COUNT(*) FROM verdicts GROUP BY r`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			r string
			n int
		)
		if err := rows.Scan(&r, &n); err != nil {
			return nil, err
		}
		out[r] = n
	}
	return out, rows.Err()
}

func scanVerdict(rows *sql.Rows) (VerdictRow, error) {
	var (
		r          VerdictRow
		recordedAt string
		success    int
		seed       int64
		finalHash  int64
		score      int64
		ticks      int64
		applied    int64
		dropped    int64
		audits     string
	)
	if err := rows.Scan(&r.ID, &r.RunID, &r.Bundle, &recordedAt, &seed, &r.SimVersion, &success,
		&r.Reason, &r.Detail, &finalHash, &score, &r.Outcome, &ticks, &applied, &dropped, &audits); err != nil {
		return VerdictRow{}, err
	}
	r.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
	r.Success = success != 0
	r.Seed = int32(seed)
	r.FinalHash = uint32(finalHash)
	r.Score = int32(score)
	r.Ticks = uint32(ticks)
	r.EventsApplied = uint32(applied)
	r.EventsDropped = uint32(dropped)
	_ = json.Unmarshal([]byte(audits), &r.AuditTicks)
	return r, nil
}
