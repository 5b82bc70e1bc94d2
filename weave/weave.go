package weave

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// body is the mutable payload stored per weave position; atom ids are kept
// in a separate parallel slice so the hot id-comparison path (covers,
// causal-block walks) never has to stride over the character payload.
type body struct {
	Pred AtomID
	Char rune
}

// Weave is the linearized causal tree: a single sequence of atoms,
// backed by parallel arrays, that is never reordered, only spliced into.
// Ancestors always precede descendants and a subtree's atoms always form a
// contiguous run — see InsertionVector for how new atoms find their place.
//
// ID is a random identifier stamped at construction purely for log
// correlation (e.g. distinguishing two in-memory weaves in a driver's
// structured logs). It plays no role in the CRDT itself: yarns, not
// weaves, are the unit of authorship identity, and yarns are plain
// uint32s.
type Weave struct {
	ID uuid.UUID

	ids    []AtomID
	bodies []body

	Weft     Weft
	Memodict *Memodict
	WaitSet  *WaitSet
}

const defaultCapacity = 64

// New returns a weave containing only the two bootstrap atoms, START and
// END.
func New() *Weave {
	w := &Weave{
		ID:       uuid.New(),
		ids:      make([]AtomID, 2, defaultCapacity),
		bodies:   make([]body, 2, defaultCapacity),
		Weft:     NewWeft(),
		Memodict: NewMemodict(),
		WaitSet:  NewWaitSet(),
	}
	w.ids[0], w.bodies[0] = StartID, body{Pred: StartID, Char: CharStart}
	w.ids[1], w.bodies[1] = EndID, body{Pred: StartID, Char: CharEnd}
	return w
}

// Len returns the number of atoms currently in the weave.
func (w *Weave) Len() int { return len(w.ids) }

// AtomAt returns the atom at weave position i. It panics if i is out of
// range, the same contract Go slice indexing gives — callers walk the
// weave with 0 <= i < w.Len().
func (w *Weave) AtomAt(i int) Atom {
	return Atom{ID: w.ids[i], Pred: w.bodies[i].Pred, Char: w.bodies[i].Char}
}

// causalBlockLen returns the length of the causal block rooted at position
// i: i itself, plus every atom at i+1, i+2, ... whose predecessor chain
// traces back to i without leaving the run. Because the weave invariant
// guarantees a subtree's atoms are contiguous, this is a single forward
// scan with a bounded-size membership set, the same cost
// walkCausalBlock/causalBlockSize pays by comparing Lamport timestamps —
// here the comparison is against ids directly, since there is no single
// global clock to compare against.
func (w *Weave) causalBlockLen(i int) int {
	root := w.ids[i]
	inBlock := map[AtomID]bool{root: true}
	n := 1
	for j := i + 1; j < w.Len(); j++ {
		pred := w.bodies[j].Pred
		if !inBlock[pred] {
			break
		}
		inBlock[w.ids[j]] = true
		n++
	}
	return n
}

// InsertOp is one entry of an insertion vector: splice chain into the weave
// immediately before position Index, where Index is expressed in
// pre-splice coordinates (i.e. against the weave as it existed before any
// entry of the same vector was applied).
type InsertOp struct {
	Index int
	Chain []Atom
}

// InsertionVector is a sequence of splice operations, in ascending Index
// order, built by a single forward pass over the pre-splice weave (see
// Apply).
type InsertionVector []InsertOp

func (ops InsertionVector) totalAtoms() int {
	n := 0
	for _, op := range ops {
		n += len(op.Chain)
	}
	return n
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// splice applies an insertion vector to the weave, choosing between the two
// equivalent splice strategies vector_weave.c offers: reusing spare
// capacity in place when there's room, or reallocating and interleaving in
// a single forward pass when there isn't. Both must (and do) produce
// identical results; which one runs is purely a space/time tradeoff.
func (w *Weave) splice(ops InsertionVector) {
	if len(ops) == 0 {
		return
	}
	total := ops.totalAtoms()
	if cap(w.ids) >= w.Len()+total {
		w.spliceInPlace(ops)
	} else {
		w.spliceRealloc(ops)
	}
}

// spliceInPlace grows the backing arrays within their existing capacity and
// shifts data rightward from the tail, processing insertion ops in reverse
// so that each region of untouched data is moved exactly once. Mirrors
// apply_insvec_inplace in vector_weave.c.
func (w *Weave) spliceInPlace(ops InsertionVector) {
	oldLen := w.Len()
	total := ops.totalAtoms()
	newLen := oldLen + total

	w.ids = w.ids[:newLen]
	w.bodies = w.bodies[:newLen]

	dst, src := newLen, oldLen
	for k := len(ops) - 1; k >= 0; k-- {
		op := ops[k]
		count := src - op.Index
		copy(w.ids[dst-count:dst], w.ids[op.Index:src])
		copy(w.bodies[dst-count:dst], w.bodies[op.Index:src])
		dst -= count
		src = op.Index

		n := len(op.Chain)
		for j, a := range op.Chain {
			w.ids[dst-n+j] = a.ID
			w.bodies[dst-n+j] = body{Pred: a.Pred, Char: a.Char}
		}
		dst -= n
	}
}

// spliceRealloc allocates fresh, next-power-of-two-capacity backing arrays
// and interleaves the original data with the insertion chains in a single
// forward pass. Mirrors apply_insvec_alloc in vector_weave.c.
func (w *Weave) spliceRealloc(ops InsertionVector) {
	oldLen := w.Len()
	total := ops.totalAtoms()
	newLen := oldLen + total
	newCap := nextPow2(newLen)

	newIDs := make([]AtomID, newLen, newCap)
	newBodies := make([]body, newLen, newCap)

	dst, src := 0, 0
	for _, op := range ops {
		n := copy(newIDs[dst:], w.ids[src:op.Index])
		copy(newBodies[dst:], w.bodies[src:op.Index])
		dst += n
		src = op.Index

		for _, a := range op.Chain {
			newIDs[dst] = a.ID
			newBodies[dst] = body{Pred: a.Pred, Char: a.Char}
			dst++
		}
	}
	n := copy(newIDs[dst:], w.ids[src:oldLen])
	copy(newBodies[dst:], w.bodies[src:oldLen])
	dst += n

	w.ids = newIDs[:dst]
	w.bodies = newBodies[:dst]
}

// String renders every atom in weave order, one per line, for debugging —
// the Go equivalent of weave_print in util.c.
func (w *Weave) String() string {
	var b strings.Builder
	for i := 0; i < w.Len(); i++ {
		fmt.Fprintln(&b, w.AtomAt(i))
	}
	return b.String()
}
