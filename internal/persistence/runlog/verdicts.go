package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"towerproof.dev/internal/protocol"
)

const (
	VerdictLogKind    = "towerproof.verdicts"
	VerdictLogVersion = 1

	// DefaultVerdictsPerFile caps one log part; the next verdict opens a new part.
	DefaultVerdictsPerFile = 10_000

	maxPartsPerHour = 1000
)

// VerdictFileHeader is the first line of every verdict log part.
type VerdictFileHeader struct {
	Kind     string `json:"kind"`
	Version  int    `json:"version"`
	Hour     string `json:"hour"`
	Part     int    `json:"part"`
	OpenedAt string `json:"opened_at"`
}

// VerdictEntry is one line of the verdict log.
type VerdictEntry struct {
	RecordedAt string                 `json:"recorded_at"`
	Bundle     string                 `json:"bundle,omitempty"`
	Seed       int32                  `json:"seed"`
	AuditTicks []uint32               `json:"audit_ticks,omitempty"`
	Verdict    protocol.RunVerdictMsg `json:"verdict"`
}

// VerdictLogger appends verdicts to zstd-compressed JSONL parts named
// verdicts-<hour>-<part>.jsonl.zst. A part is never reopened: a new hour, a full
// part or a restarted process always starts a fresh file with its own header.
type VerdictLogger struct {
	dir        string
	maxPerFile int
	now        func() time.Time

	mu    sync.Mutex
	hour  string
	part  int
	count int
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
}

// NewVerdictLogger logs under <dataDir>/verdicts. maxPerFile <= 0 uses
// DefaultVerdictsPerFile.
func NewVerdictLogger(dataDir string, maxPerFile int) *VerdictLogger {
	if maxPerFile <= 0 {
		maxPerFile = DefaultVerdictsPerFile
	}
	return &VerdictLogger{
		dir:        filepath.Join(dataDir, "verdicts"),
		maxPerFile: maxPerFile,
		now:        time.Now,
	}
}

func (l *VerdictLogger) WriteVerdict(e VerdictEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	hour := now.Format("2006-01-02-15")
	switch {
	case l.w == nil || hour != l.hour:
		if err := l.openLocked(hour, 0, now); err != nil {
			return err
		}
	case l.count >= l.maxPerFile:
		if err := l.openLocked(hour, l.part+1, now); err != nil {
			return err
		}
	}
	if err := l.writeLineLocked(b); err != nil {
		return err
	}
	l.count++
	return nil
}

func (l *VerdictLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

// openLocked closes the current part and creates the first free part >= part for
// hour, then writes its header.
func (l *VerdictLogger) openLocked(hour string, part int, now time.Time) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	var f *os.File
	for ; part < maxPartsPerHour; part++ {
		var err error
		f, err = os.OpenFile(VerdictPartPath(l.dir, hour, part), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	if f == nil {
		return fmt.Errorf("runlog: hour %s has %d verdict parts", hour, maxPartsPerHour)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f, l.enc, l.w = f, enc, bufio.NewWriterSize(enc, 128*1024)
	l.hour, l.part, l.count = hour, part, 0

	b, err := json.Marshal(VerdictFileHeader{
		Kind:     VerdictLogKind,
		Version:  VerdictLogVersion,
		Hour:     hour,
		Part:     part,
		OpenedAt: now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return l.writeLineLocked(b)
}

func (l *VerdictLogger) writeLineLocked(b []byte) error {
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *VerdictLogger) closeLocked() error {
	var err error
	if l.w != nil {
		err = l.w.Flush()
	}
	if l.enc != nil {
		if cerr := l.enc.Close(); err == nil {
			err = cerr
		}
	}
	if l.f != nil {
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
	}
	l.f, l.enc, l.w = nil, nil, nil
	l.hour = ""
	return err
}

// VerdictPartPath names one part; the zero-padded part keeps lexical order
// chronological within an hour.
func VerdictPartPath(dir, hour string, part int) string {
	return filepath.Join(dir, fmt.Sprintf("verdicts-%s-%03d.jsonl.zst", hour, part))
}

// ReadVerdicts decodes one verdict log part. The first line must be a header of a
// known version.
func ReadVerdicts(path string) (VerdictFileHeader, []VerdictEntry, error) {
	var h VerdictFileHeader
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	var out []VerdictEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	headerSeen := false
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if !headerSeen {
			if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
				return h, nil, fmt.Errorf("%s: header: %w", path, err)
			}
			if h.Kind != VerdictLogKind || h.Version < 1 || h.Version > VerdictLogVersion {
				return h, nil, fmt.Errorf("%s: not a v%d verdict log (kind=%q version=%d)",
					path, VerdictLogVersion, h.Kind, h.Version)
			}
			headerSeen = true
			continue
		}
		var e VerdictEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return h, out, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return h, out, err
	}
	if !headerSeen {
		return h, nil, fmt.Errorf("%s: empty verdict log", path)
	}
	return h, out, nil
}
