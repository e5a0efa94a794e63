package raster

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runBlocks fans blocks out to a fixed number of workers. Each worker owns a
// row buffer sized for src and passes it to fn for every block it takes. The
// first error cancels the remaining blocks.
func runBlocks(ctx context.Context, src Source, blocks []Block, workers int, fn func(b Block, row []float64) error) error {
	if workers > len(blocks) {
		workers = len(blocks)
	}
	width, _ := src.Size()
	rowLen := width * src.Bands()

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan Block, workers)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			row := make([]float64, rowLen)
			for b := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(b, row); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, b := range blocks {
			select {
			case jobs <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}
