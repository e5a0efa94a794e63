package isodata

// LabelPass maps a pixel to the id of its nearest centre. It holds no
// per-pixel state and is safe for concurrent use.
type LabelPass struct {
	store Store
}

// NewLabelPass returns a pass over store.
func NewLabelPass(store Store) *LabelPass {
	return &LabelPass{store: store}
}

func (p *LabelPass) Label(pixel []float64) int {
	i, _ := nearest(p.store, pixel)
	if i < 0 {
		return -1
	}
	return p.store[i].ID
}
