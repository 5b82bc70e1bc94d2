package weave

import "sort"

// yarnIndex is a sorted-offset index into the weft snapshots recorded for a
// single yarn. offsets and wefts are parallel slices, kept in ascending
// offset order, searched by binary search the same way ctree.go's siteIndex
// searches a sorted sitemap.
type yarnIndex struct {
	offsets []uint32
	wefts   []Weft
}

func (yi *yarnIndex) add(offset uint32, w Weft) {
	i := sort.Search(len(yi.offsets), func(i int) bool { return yi.offsets[i] >= offset })
	if i < len(yi.offsets) && yi.offsets[i] == offset {
		yi.wefts[i] = w
		return
	}
	yi.offsets = append(yi.offsets, 0)
	copy(yi.offsets[i+1:], yi.offsets[i:])
	yi.offsets[i] = offset

	yi.wefts = append(yi.wefts, nil)
	copy(yi.wefts[i+1:], yi.wefts[i:])
	yi.wefts[i] = w
}

// get returns the weft stored at the largest offset <= query, or nil if no
// such entry exists.
func (yi *yarnIndex) get(query uint32) Weft {
	// i is the index of the first offset strictly greater than query; the
	// entry we want, if any, sits just before it.
	i := sort.Search(len(yi.offsets), func(i int) bool { return yi.offsets[i] > query })
	if i == 0 {
		return nil
	}
	return yi.wefts[i-1]
}

// Memodict memoizes, per atom id, the awareness weft in effect when that
// atom was created. It is only populated for atoms whose predecessor lives
// on a different yarn: a same-yarn predecessor never needs a cross-yarn
// lookup, so memoizing it would be pure overhead.
//
// Lookups answer a predecessor query: the largest recorded offset in a yarn
// that does not exceed the requested offset, exactly as memodict_get does in
// memodict.c.
type Memodict struct {
	yarns map[uint32]*yarnIndex
}

// NewMemodict returns an empty memodict.
func NewMemodict() *Memodict {
	return &Memodict{yarns: make(map[uint32]*yarnIndex)}
}

// Add records that the awareness weft at id is w.
func (m *Memodict) Add(id AtomID, w Weft) {
	yi, ok := m.yarns[id.Yarn()]
	if !ok {
		yi = &yarnIndex{}
		m.yarns[id.Yarn()] = yi
	}
	yi.add(id.Offset(), w)
}

// Get returns the weft recorded at the largest memoized offset on id's yarn
// not exceeding id's own offset. It returns an empty weft if nothing is
// memoized for that yarn at or before id.
func (m *Memodict) Get(id AtomID) Weft {
	yi, ok := m.yarns[id.Yarn()]
	if !ok {
		return NewWeft()
	}
	if w := yi.get(id.Offset()); w != nil {
		return w
	}
	return NewWeft()
}

// Pull reconstructs the awareness weft in effect at the moment id was
// created, given its causal predecessor pred (the zero AtomID if id has no
// predecessor, i.e. it is the head of a fresh chain anchored elsewhere).
//
// This is the exact recipe pull() follows in memodict.c: start from the
// nearest memoized weft on id's own yarn, extend it to cover id itself,
// then — if id has a predecessor — fold in the nearest memoized weft on the
// predecessor's yarn and extend that to cover the predecessor too.
func (m *Memodict) Pull(id, pred AtomID) Weft {
	w := m.Get(id).Copy()
	w.Extend(id.Yarn(), id.Offset())
	if pred != 0 {
		w.MergeInto(m.Get(pred))
		w.Extend(pred.Yarn(), pred.Offset())
	}
	return w
}
