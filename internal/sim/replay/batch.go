package replay

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"towerproof.dev/internal/sim/checkpoint"
	"towerproof.dev/internal/sim/rng"
)

// RunBatch verifies inputs concurrently, one simulation per goroutine, with at most
// parallelism runs in flight (<=0 means one per input). Results keep input order.
// The first malformed config or context cancellation aborts the batch.
func RunBatch(ctx context.Context, inputs []Input, parallelism int) ([]Result, error) {
	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Run(inputs[i])
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// PickAuditTicks chooses up to n of the claimed checkpoint ticks with a verifier-only
// seed. The client cannot predict which of its checkpoints will be spot-checked.
func PickAuditTicks(seed uint32, claimed []checkpoint.Checkpoint, n int) []uint32 {
	ticks := make([]uint32, 0, len(claimed))
	for _, cp := range claimed {
		ticks = append(ticks, cp.Tick)
	}
	ticks = sortedUnique(ticks)
	picked := rng.PickN(rng.New(seed), ticks, n)
	sort.Slice(picked, func(i, j int) bool { return picked[i] < picked[j] })
	return picked
}
