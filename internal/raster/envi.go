package raster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ENVIHeader holds the subset of ENVI header keys needed to read the
// binary data file.
type ENVIHeader struct {
	Samples      int
	Lines        int
	Bands        int
	DataType     int
	Interleave   string
	ByteOrder    int
	HeaderOffset int64
}

var enviSampleSize = map[int]int{
	1:  1, // uint8
	2:  2, // int16
	4:  4, // float32
	5:  8, // float64
	12: 2, // uint16
}

// ParseENVIHeader reads an ENVI .hdr file.
func ParseENVIHeader(r io.Reader) (*ENVIHeader, error) {
	hdr := &ENVIHeader{Interleave: "bsq"}
	sc := bufio.NewScanner(r)

	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			if line != "ENVI" {
				return nil, fmt.Errorf("not an ENVI header: first line %q", line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		// Brace blocks ("description = {...}") may span lines.
		if strings.HasPrefix(value, "{") && !strings.Contains(value, "}") {
			for sc.Scan() {
				if strings.Contains(sc.Text(), "}") {
					break
				}
			}
			continue
		}

		var err error
		switch key {
		case "samples":
			hdr.Samples, err = strconv.Atoi(value)
		case "lines":
			hdr.Lines, err = strconv.Atoi(value)
		case "bands":
			hdr.Bands, err = strconv.Atoi(value)
		case "data type":
			hdr.DataType, err = strconv.Atoi(value)
		case "interleave":
			hdr.Interleave = strings.ToLower(value)
		case "byte order":
			hdr.ByteOrder, err = strconv.Atoi(value)
		case "header offset":
			hdr.HeaderOffset, err = strconv.ParseInt(value, 10, 64)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ENVI header: %w", err)
	}
	if first {
		return nil, fmt.Errorf("empty ENVI header")
	}
	return hdr, hdr.validate()
}

func (h *ENVIHeader) validate() error {
	if h.Samples <= 0 || h.Lines <= 0 || h.Bands <= 0 {
		return fmt.Errorf("invalid ENVI dimensions %dx%dx%d", h.Samples, h.Lines, h.Bands)
	}
	if _, ok := enviSampleSize[h.DataType]; !ok {
		return fmt.Errorf("unsupported ENVI data type %d", h.DataType)
	}
	switch h.Interleave {
	case "bsq", "bil", "bip":
	default:
		return fmt.Errorf("unsupported ENVI interleave %q", h.Interleave)
	}
	if h.ByteOrder != 0 && h.ByteOrder != 1 {
		return fmt.Errorf("invalid ENVI byte order %d", h.ByteOrder)
	}
	if h.HeaderOffset < 0 {
		return fmt.Errorf("invalid ENVI header offset %d", h.HeaderOffset)
	}
	_, _, err := h.payload()
	return err
}

// payload returns how many samples the data file holds and their size in
// bytes. Every sample becomes a float64 in memory, so the count is capped
// at what a []float64 can address.
func (h *ENVIHeader) payload() (values, size int, err error) {
	const maxValues = math.MaxInt / 8
	values = h.Samples
	for _, f := range []int{h.Lines, h.Bands} {
		if values > maxValues/f {
			return 0, 0, fmt.Errorf("ENVI dimensions %dx%dx%d too large", h.Samples, h.Lines, h.Bands)
		}
		values *= f
	}
	return values, values * enviSampleSize[h.DataType], nil
}

// enviPaths resolves the header and data file for either of the two paths a
// caller may pass.
func enviPaths(path string) (hdrPath, dataPath string, err error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if strings.EqualFold(ext, ".hdr") {
		for _, cand := range []string{base, base + ".img", base + ".dat", base + ".bsq", base + ".bil", base + ".bip"} {
			if st, err := os.Stat(cand); err == nil && !st.IsDir() {
				return path, cand, nil
			}
		}
		return "", "", fmt.Errorf("no ENVI data file found for %s", path)
	}
	for _, cand := range []string{base + ".hdr", path + ".hdr"} {
		if _, err := os.Stat(cand); err == nil {
			return cand, path, nil
		}
	}
	return "", "", fmt.Errorf("no ENVI header found for %s", path)
}

// OpenENVI reads an ENVI raster fully into memory.
func OpenENVI(path string) (*Image, error) {
	hdrPath, dataPath, err := enviPaths(path)
	if err != nil {
		return nil, err
	}

	hf, err := os.Open(hdrPath)
	if err != nil {
		return nil, fmt.Errorf("opening ENVI header: %w", err)
	}
	hdr, err := ParseENVIHeader(hf)
	hf.Close()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", hdrPath, err)
	}

	df, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening ENVI data: %w", err)
	}
	defer df.Close()

	st, err := df.Stat()
	if err != nil {
		return nil, fmt.Errorf("opening ENVI data: %w", err)
	}
	_, want, err := hdr.payload()
	if err != nil {
		return nil, err
	}
	if have := st.Size() - hdr.HeaderOffset; have != int64(want) {
		return nil, fmt.Errorf("ENVI data file %s holds %d bytes after the header offset, header describes %d", dataPath, have, want)
	}

	if hdr.HeaderOffset > 0 {
		if _, err := df.Seek(hdr.HeaderOffset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seeking ENVI header offset: %w", err)
		}
	}
	return ReadENVI(bufio.NewReader(df), hdr)
}

// ReadENVI decodes the binary payload described by hdr.
func ReadENVI(r io.Reader, hdr *ENVIHeader) (*Image, error) {
	if err := hdr.validate(); err != nil {
		return nil, err
	}
	var order binary.ByteOrder = binary.LittleEndian
	if hdr.ByteOrder == 1 {
		order = binary.BigEndian
	}
	size := enviSampleSize[hdr.DataType]
	w, h, nb := hdr.Samples, hdr.Lines, hdr.Bands
	n, nbytes, err := hdr.payload()
	if err != nil {
		return nil, err
	}

	// Grow with the data actually read so a short stream fails before the
	// full-size buffers are allocated.
	buf, err := io.ReadAll(io.LimitReader(r, int64(nbytes)))
	if err != nil {
		return nil, fmt.Errorf("reading ENVI data: %w", err)
	}
	if len(buf) < nbytes {
		return nil, fmt.Errorf("reading ENVI data: %w", io.ErrUnexpectedEOF)
	}

	out := NewImage(w, h, nb)
	for i := 0; i < n; i++ {
		v := decodeSample(buf[i*size:(i+1)*size], hdr.DataType, order)

		var x, y, b int
		switch hdr.Interleave {
		case "bsq":
			b, y, x = i/(w*h), (i/w)%h, i%w
		case "bil":
			y, b, x = i/(w*nb), (i/w)%nb, i%w
		case "bip":
			y, x, b = i/(w*nb), (i/nb)%w, i%nb
		}
		out.data[(y*w+x)*nb+b] = v
	}
	return out, nil
}

func decodeSample(p []byte, dataType int, order binary.ByteOrder) float64 {
	switch dataType {
	case 1:
		return float64(p[0])
	case 2:
		return float64(int16(order.Uint16(p)))
	case 4:
		return float64(math.Float32frombits(order.Uint32(p)))
	case 5:
		return math.Float64frombits(order.Uint64(p))
	case 12:
		return float64(order.Uint16(p))
	}
	return math.NaN()
}
