package raster

import (
	"context"
)

// Accumulator is a per-pixel callback that gathers state across a full pass.
// The pixel slice is only valid for the duration of the call.
type Accumulator interface {
	Accumulate(pixel []float64)
}

// Forkable accumulators can be split across workers. Fork returns an empty
// accumulator of the same shape; Join adds a fork's partial results back into
// the receiver.
type Forkable interface {
	Accumulator
	Fork() Forkable
	Join(part Forkable)
}

// Accumulate feeds every pixel of src to acc. With more than one worker and a
// Forkable accumulator the image is processed in row blocks, each block on its
// own fork; forks are joined in block order once every block has finished.
func Accumulate(ctx context.Context, src Source, acc Accumulator, workers int) error {
	width, height := src.Size()
	nb := src.Bands()

	fk, ok := acc.(Forkable)
	if workers <= 1 || !ok {
		row := make([]float64, width*nb)
		for y := 0; y < height; y++ {
			if y%DefaultBlockRows == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			src.ReadRow(y, row)
			for x := 0; x < width; x++ {
				acc.Accumulate(row[x*nb : (x+1)*nb])
			}
		}
		return nil
	}

	blocks := ChunkRows(height, DefaultBlockRows)
	parts := make([]Forkable, len(blocks))
	for i := range parts {
		parts[i] = fk.Fork()
	}

	err := runBlocks(ctx, src, blocks, workers, func(b Block, row []float64) error {
		part := parts[b.Index]
		for y := b.Y0; y < b.Y1; y++ {
			src.ReadRow(y, row)
			for x := 0; x < width; x++ {
				part.Accumulate(row[x*nb : (x+1)*nb])
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, part := range parts {
		fk.Join(part)
	}
	return nil
}
