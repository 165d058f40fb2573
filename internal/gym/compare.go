package gym

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// SimulateAll runs independent comparison states in parallel. Results keep the input order.
func SimulateAll(ctx context.Context, configs []SimulationConfig) ([]SimulationResult, error) {
	out := make([]SimulationResult, len(configs))
	g, ctx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		i, cfg := i, cfg // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Simulate(cfg)
			if err != nil {
				return fmt.Errorf("state %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
