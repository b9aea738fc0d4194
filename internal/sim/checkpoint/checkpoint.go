// Package checkpoint fingerprints simulation state with FNV-1a (32-bit) and links the
// fingerprints into a tamper-evident chain.
package checkpoint

import (
	"hash/fnv"
)

// Genesis is the chain hash that precedes the first checkpoint of every run.
const Genesis uint32 = 0

// Checkpoint is immutable once created.
type Checkpoint struct {
	Tick      uint32 `json:"tick"`
	Hash      uint32 `json:"hash"`
	ChainHash uint32 `json:"chain"`
}

// Hash returns fnv1a32 over the canonical encoding of in.
func Hash(in StateInput) uint32 {
	e := encoder{h: fnv.New32a()}
	e.state(in)
	return e.h.Sum32()
}

// ChainHash returns fnv1a32(LE32(prev) || LE32(tick) || LE32(hash)).
func ChainHash(prev, tick, hash uint32) uint32 {
	e := encoder{h: fnv.New32a()}
	e.u32(prev)
	e.u32(tick)
	e.u32(hash)
	return e.h.Sum32()
}

// Create fingerprints in and links it to prevChain.
func Create(in StateInput, prevChain uint32) Checkpoint {
	h := Hash(in)
	return Checkpoint{Tick: in.Tick, Hash: h, ChainHash: ChainHash(prevChain, in.Tick, h)}
}

// FinalHash fingerprints a terminal state together with the chain head, so it commits
// both to the end state and to every linked checkpoint before it.
func FinalHash(in StateInput, chainHead uint32) uint32 {
	e := encoder{h: fnv.New32a()}
	e.h.Write([]byte("FINAL"))
	e.state(in)
	e.u32(chainHead)
	return e.h.Sum32()
}

// Recompute rebuilds the chain hashes of cps from their Tick/Hash fields alone.
func Recompute(genesis uint32, cps []Checkpoint) []uint32 {
	out := make([]uint32, len(cps))
	prev := genesis
	for i, cp := range cps {
		prev = ChainHash(prev, cp.Tick, cp.Hash)
		out[i] = prev
	}
	return out
}

// VerifyChain returns the index of the first checkpoint whose stored ChainHash does not
// match the recomputed one, or -1 when the whole chain is intact.
func VerifyChain(genesis uint32, cps []Checkpoint) int {
	prev := genesis
	for i, cp := range cps {
		prev = ChainHash(prev, cp.Tick, cp.Hash)
		if prev != cp.ChainHash {
			return i
		}
	}
	return -1
}
