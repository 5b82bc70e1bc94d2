package weave

import (
	"fmt"
	"sort"
	"strings"
)

// Weft tracks, per yarn, the highest offset known to have been seen. It is
// the awareness fingerprint of a point in the weave's history: an atom is
// covered by a weft once that weft's offset for the atom's yarn reaches the
// atom's own offset.
//
// Yarn 0 carries only the two bootstrap atoms (START at offset 1, END at
// offset 2) and is never extended further, so every Weft implicitly covers
// it up to offset 2 whether or not yarn 0 has a stored entry. This mirrors
// weft_get's special case in weft.c.
type Weft map[uint32]uint32

// NewWeft returns an empty weft, covering only the two bootstrap atoms.
func NewWeft() Weft {
	return make(Weft)
}

// Get returns the highest offset known for yarn.
func (w Weft) Get(yarn uint32) uint32 {
	if yarn == 0 {
		return 2
	}
	return w[yarn]
}

// Set records offset as the known offset for yarn, overwriting any prior
// value regardless of ordering.
func (w Weft) Set(yarn, offset uint32) {
	w[yarn] = offset
}

// Extend raises the known offset for yarn to offset, if offset is higher
// than what is already known.
func (w Weft) Extend(yarn, offset uint32) {
	if offset > w.Get(yarn) {
		w[yarn] = offset
	}
}

// Covers reports whether id has already been observed by w.
func (w Weft) Covers(id AtomID) bool {
	return id.Offset() <= w.Get(id.Yarn())
}

// MergeInto raises every entry of w to the corresponding entry of other,
// taking the componentwise maximum (the weft lattice join).
func (w Weft) MergeInto(other Weft) {
	for yarn, offset := range other {
		w.Extend(yarn, offset)
	}
}

// Copy returns an independent copy of w.
func (w Weft) Copy() Weft {
	cp := make(Weft, len(w))
	for yarn, offset := range w {
		cp[yarn] = offset
	}
	return cp
}

func (w Weft) sortedYarns() []uint32 {
	yarns := make([]uint32, 0, len(w))
	for yarn := range w {
		yarns = append(yarns, yarn)
	}
	sort.Slice(yarns, func(i, j int) bool { return yarns[i] < yarns[j] })
	return yarns
}

// Gt is a total order over wefts, used only to place concurrent siblings in
// a deterministic, convergent left-to-right order — it is distinct from the
// lattice's partial order (where two wefts can be incomparable).
//
// Wefts are compared by walking their stored yarns in ascending order in
// lockstep:
//   - whichever weft names the smaller yarn at the current step is the
//     greater weft (it diverges from the other first);
//   - for a shared yarn, the weft with the larger offset is the greater
//     weft;
//   - ties advance both iterators;
//   - if the two wefts run out of yarns to compare at the same time, they
//     are equal and Gt is false both ways;
//   - if one weft's stored yarns run out before the other's, the longer
//     weft is greater. This is an explicit pick among two reasonable rules
//     for breaking a total-exhaustion tie (the spec identifies it as an
//     open implementation decision); it only affects deterministic sibling
//     placement, never convergence.
func (w Weft) Gt(other Weft) bool {
	a, b := w.sortedYarns(), other.sortedYarns()
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			return true
		case a[i] > b[j]:
			return false
		case w[a[i]] > other[b[j]]:
			return true
		case w[a[i]] < other[b[j]]:
			return false
		default:
			i++
			j++
		}
	}
	if i < len(a) {
		return true
	}
	if j < len(b) {
		return false
	}
	return false
}

// String renders one "yarn\toffset" line per stored yarn, in ascending yarn
// order, matching weft_print in weft.c.
func (w Weft) String() string {
	var b strings.Builder
	for _, yarn := range w.sortedYarns() {
		fmt.Fprintf(&b, "%d\t%d\n", yarn, w[yarn])
	}
	return b.String()
}
