// Package rng provides the seeded Xorshift32 stream used by the simulation.
//
// The whole generator state is one uint32 word. Exporting and re-importing that word
// reproduces the stream exactly, which is what checkpoints rely on.
package rng

// DefaultSeed replaces a zero seed; xorshift never leaves the all-zero state.
const DefaultSeed uint32 = 2463534242

type Xorshift32 struct {
	state uint32
}

func New(seed uint32) *Xorshift32 {
	r := &Xorshift32{}
	r.SetState(seed)
	return r
}

// Next advances the stream. The shift triple (13, 17, 5) and its order are fixed.
func (r *Xorshift32) Next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// NextFloat returns a value in [0, 1). Not for gameplay-critical decisions.
func (r *Xorshift32) NextFloat() float64 {
	return float64(r.Next()) / 4294967296.0
}

// NextInt returns a value in [min, max] using Next() % span.
//
// The modulo introduces a small bias toward low values when span does not divide 2^32.
// It is kept as-is: changing it would change every recorded run.
// When max <= min it returns min without consuming a draw.
func (r *Xorshift32) NextInt(min, max int32) int32 {
	if max <= min {
		return min
	}
	span := uint64(int64(max) - int64(min) + 1)
	v := uint64(r.Next()) % span
	return int32(int64(min) + int64(v))
}

func (r *Xorshift32) State() uint32 { return r.state }

func (r *Xorshift32) SetState(s uint32) {
	if s == 0 {
		s = DefaultSeed
	}
	r.state = s
}

// Shuffle permutes items in place with Fisher-Yates from the end, one Next() per swap.
func Shuffle[T any](r *Xorshift32, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := int(r.Next() % uint32(i+1))
		items[i], items[j] = items[j], items[i]
	}
}

// Pick returns one element. An empty slice returns ok=false without drawing.
func Pick[T any](r *Xorshift32, items []T) (v T, ok bool) {
	if len(items) == 0 {
		return v, false
	}
	return items[r.Next()%uint32(len(items))], true
}

// PickN returns n distinct elements using a partial forward Fisher-Yates over a copy
// (one Next() per picked element). The input slice is not modified.
func PickN[T any](r *Xorshift32, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	pool := append([]T(nil), items...)
	for i := 0; i < n; i++ {
		j := i + int(r.Next()%uint32(len(pool)-i))
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
