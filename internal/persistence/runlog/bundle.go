// Package runlog stores run submissions as zstd bundles and appends verdicts to
// zstd-compressed JSONL parts, one header line per part, split by hour and count.
package runlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"towerproof.dev/internal/protocol"
)

const BundleVersion = 1

// Ext is the file extension cmd/record writes and cmd/replay scans for.
const Ext = ".run.json.zst"

// Header is the first JSONL line of a bundle so listings need not decode the payload.
type Header struct {
	Version    int    `json:"version"`
	RunID      string `json:"run_id"`
	Seed       int32  `json:"seed"`
	SimVersion int    `json:"sim_version"`
	Events     int    `json:"events"`
	FinalHash  uint32 `json:"final_hash"`
}

func WriteBundle(path string, sub protocol.RunSubmissionMsg) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(Header{
		Version:    BundleVersion,
		RunID:      sub.RunID,
		Seed:       sub.Seed,
		SimVersion: sub.SimVersion,
		Events:     len(sub.Events),
		FinalHash:  sub.FinalHash,
	})
	body, err := json.Marshal(sub)
	if err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode submission: %w", err)
	}
	for _, chunk := range [][]byte{hb, {'\n'}, body} {
		if _, err := bw.Write(chunk); err != nil {
			_ = enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadBundle decodes a bundle and validates the payload like any client upload.
func ReadBundle(path string) (Header, protocol.RunSubmissionMsg, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, protocol.RunSubmissionMsg{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, protocol.RunSubmissionMsg{}, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, protocol.RunSubmissionMsg{}, fmt.Errorf("bundle header: %w", err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return h, protocol.RunSubmissionMsg{}, fmt.Errorf("bundle header: %w", err)
	}
	if h.Version != BundleVersion {
		return h, protocol.RunSubmissionMsg{}, fmt.Errorf("bundle version %d not supported", h.Version)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return h, protocol.RunSubmissionMsg{}, err
	}
	sub, err := protocol.DecodeSubmission(body)
	if err != nil {
		return h, protocol.RunSubmissionMsg{}, err
	}
	return h, sub, nil
}

// FindBundles lists bundle files under dir (non-recursive), sorted by name.
func FindBundles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, err
	}
	return paths, nil
}
