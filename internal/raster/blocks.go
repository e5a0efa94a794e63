package raster

// DefaultBlockRows is the number of image rows handed to a worker at a time.
const DefaultBlockRows = 64

// Block is a horizontal strip of rows [Y0, Y1).
type Block struct {
	Index int
	Y0    int
	Y1    int
}

// ChunkRows splits height rows into consecutive blocks of at most rowsPerBlock.
func ChunkRows(height, rowsPerBlock int) []Block {
	if rowsPerBlock <= 0 {
		rowsPerBlock = DefaultBlockRows
	}
	var blocks []Block
	for y := 0; y < height; y += rowsPerBlock {
		end := y + rowsPerBlock
		if end > height {
			end = height
		}
		blocks = append(blocks, Block{Index: len(blocks), Y0: y, Y1: end})
	}
	return blocks
}
