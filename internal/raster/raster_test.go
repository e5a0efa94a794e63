package raster

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type sumAcc struct {
	sum   []float64
	count int
}

func (s *sumAcc) Accumulate(pixel []float64) {
	for b, v := range pixel {
		s.sum[b] += v
	}
	s.count++
}

func (s *sumAcc) Fork() Forkable { return &sumAcc{sum: make([]float64, len(s.sum))} }

func (s *sumAcc) Join(part Forkable) {
	p := part.(*sumAcc)
	for b := range s.sum {
		s.sum[b] += p.sum[b]
	}
	s.count += p.count
}

type constLabel int

func (c constLabel) Label([]float64) int { return int(c) }

type bandLabel struct{}

func (bandLabel) Label(pixel []float64) int { return int(pixel[0]) }

func gradient(w, h int) *Image {
	im := NewImage(w, h, 2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(x, y, float64(x), float64(y*10))
		}
	}
	return im
}

// ---------------------------------------------------------------------------
// blocks
// ---------------------------------------------------------------------------

func TestChunkRows(t *testing.T) {
	got := ChunkRows(10, 4)
	want := []Block{{0, 0, 4}, {1, 4, 8}, {2, 8, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChunkRows mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, ChunkRows(0, 4))
	assert.Len(t, ChunkRows(DefaultBlockRows+1, 0), 2)
}

// ---------------------------------------------------------------------------
// Image
// ---------------------------------------------------------------------------

func TestImageSetPixel(t *testing.T) {
	im := NewImage(3, 2, 2)
	im.Set(2, 1, 5, 6)
	assert.Equal(t, []float64{5, 6}, im.Pixel(2, 1))

	row := make([]float64, 6)
	im.ReadRow(1, row)
	assert.Equal(t, []float64{0, 0, 0, 0, 5, 6}, row)

	im.Fill(0, 0, 3, 1, 9, 9)
	im.ReadRow(0, row)
	assert.Equal(t, []float64{9, 9, 9, 9, 9, 9}, row)
}

func TestFromImageGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(1, 0, color.Gray{Y: 200})
	im := FromImage(src)
	assert.Equal(t, 1, im.Bands())
	assert.Equal(t, []float64{200}, im.Pixel(1, 0))
}

func TestFromImageRGB(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	im := FromImage(src)
	assert.Equal(t, 3, im.Bands())
	assert.Equal(t, []float64{10, 20, 30}, im.Pixel(0, 0))
}

func TestFromImageNonPremultiplied(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	im := FromImage(src)
	assert.Equal(t, 3, im.Bands())
	assert.Equal(t, []float64{10, 20, 30}, im.Pixel(1, 0), "translucent pixels keep their colour")

	src64 := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	src64.SetNRGBA64(0, 0, color.NRGBA64{R: 1000, G: 2000, B: 3000, A: 0})
	assert.Equal(t, []float64{1000, 2000, 3000}, FromImage(src64).Pixel(0, 0))
}

func TestOpenImagePNG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	src.SetGray(3, 3, color.Gray{Y: 77})
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	s, err := Open(path)
	require.NoError(t, err)
	w, h := s.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, []float64{77}, s.(*Image).Pixel(3, 3))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	_, err = FileOpener(filepath.Join(t.TempDir(), "missing.tif"))()
	assert.Error(t, err)

	_, err = StaticOpener(nil)()
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Accumulate / Stats
// ---------------------------------------------------------------------------

func TestAccumulateSequentialMatchesParallel(t *testing.T) {
	im := gradient(17, 150)

	seq := &sumAcc{sum: make([]float64, 2)}
	require.NoError(t, Accumulate(context.Background(), im, seq, 1))

	par := &sumAcc{sum: make([]float64, 2)}
	require.NoError(t, Accumulate(context.Background(), im, par, 4))

	assert.Equal(t, 17*150, seq.count)
	assert.Equal(t, seq.count, par.count)
	assert.Equal(t, seq.sum, par.sum, "integer-valued sums are exact in either order")
}

func TestAccumulateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	acc := &sumAcc{sum: make([]float64, 2)}
	err := Accumulate(ctx, gradient(4, 4), acc, 1)
	assert.True(t, errors.Is(err, context.Canceled))

	err = Accumulate(ctx, gradient(4, 200), acc, 3)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStats(t *testing.T) {
	im := gradient(5, 100)
	for _, workers := range []int{1, 3} {
		stats, err := Stats(context.Background(), im, workers)
		require.NoError(t, err)
		want := []BandStat{{Min: 0, Max: 4}, {Min: 0, Max: 990}}
		if diff := cmp.Diff(want, stats); diff != "" {
			t.Errorf("workers=%d stats mismatch (-want +got):\n%s", workers, diff)
		}
	}

	_, err := Stats(context.Background(), NewImage(0, 0, 1), 1)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Label / WriteLabels
// ---------------------------------------------------------------------------

func TestLabelParallel(t *testing.T) {
	im := gradient(6, 130)
	for _, workers := range []int{1, 4} {
		li, err := Label(context.Background(), im, bandLabel{}, workers)
		require.NoError(t, err)
		assert.Equal(t, 5, li.At(5, 129))
		assert.Equal(t, 130, li.Counts()[2])
	}
}

func TestLabelOutOfRange(t *testing.T) {
	_, err := Label(context.Background(), gradient(2, 2), constLabel(-1), 1)
	assert.Error(t, err)
	_, err = Label(context.Background(), gradient(2, 2), constLabel(70000), 2)
	assert.Error(t, err)
}

func TestWriteLabelsRoundTrip(t *testing.T) {
	li := &LabelImage{Width: 3, Height: 2, Labels: []uint16{0, 1, 2, 2, 1, 0}}
	dir := t.TempDir()

	for _, name := range []string{"out.png", "out.tif"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteLabels(path, li))

		s, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Bands(), name)
		assert.Equal(t, []float64{2}, s.(*Image).Pixel(2, 0), name)
		assert.Equal(t, []float64{1}, s.(*Image).Pixel(1, 1), name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestWriteLabelsBadDir(t *testing.T) {
	li := &LabelImage{Width: 1, Height: 1, Labels: []uint16{0}}
	err := WriteLabels(filepath.Join(t.TempDir(), "missing", "out.png"), li)
	assert.Error(t, err)
}
