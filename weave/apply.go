package weave

import (
	"sort"

	"golang.org/x/xerrors"
)

// ErrDuplicatePatch is returned by Apply when any atom a patch would
// introduce is already covered by the weave's weft — the patch (or this
// part of it) has already been applied and must not be reapplied.
var ErrDuplicatePatch = xerrors.New("duplicate patch")

// insRec is one chain pending insertion, anchored at a weave position found
// during the traversal in step 2 below.
type insRec struct {
	typ   ChainType
	atoms []Atom
}

// Apply merges patch into the weave.
//
// If patch is not yet ready — some atom it depends on hasn't arrived — it
// is parked in the waiting set and Apply returns nil; it will be retried
// automatically once its dependency is covered. If patch has already been
// applied, Apply returns ErrDuplicatePatch. Otherwise patch is spliced in
// immediately.
func (w *Weave) Apply(patch *Patch) error {
	switch d := patch.BlockingID(w.Weft); d.Status {
	case Duplicate:
		return ErrDuplicatePatch
	case Blocked:
		w.WaitSet.Add(patch, d.BlockingID)
		return nil
	}
	w.applyReady(patch)
	return nil
}

// applyReady splices an already-ready patch into the weave. It follows the
// four-stage pipeline vector_weave.c's apply_patch lays out: build the
// delete/insert indexes (populating the memodict along the way), perform a
// single forward traversal of the pre-splice weave to build an insertion
// vector, splice, then extend the weft and retry anything the newly
// covered atoms unblock.
func (w *Weave) applyReady(patch *Patch) {
	w.populateMemodict(patch)
	deldict, insdict := w.buildIndexes(patch)

	var ops InsertionVector
	for i := 0; i < w.Len(); i++ {
		id := w.ids[i]
		if a, ok := deldict[id]; ok {
			ops = append(ops, InsertOp{Index: i + 1, Chain: []Atom{a}})
		}
		for _, rec := range insdict[id] {
			if rec.typ == SaveChain {
				ops = append(ops, InsertOp{Index: i + 1, Chain: rec.atoms})
				continue
			}
			ops = append(ops, InsertOp{Index: w.placeInsertion(i, rec.atoms[0]), Chain: rec.atoms})
		}
	}
	// Placement can, in principle, order two concurrently-anchored chains
	// out of traversal order; a stable sort restores ascending-Index order
	// without disturbing the relative order ties were already resolved in.
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Index < ops[j].Index })
	w.splice(ops)

	for _, c := range patch.Chains {
		for _, a := range c.Atoms {
			w.Weft.Extend(a.ID.Yarn(), a.ID.Offset())
		}
	}

	w.retry(patch)
}

// populateMemodict records the awareness weft of every atom in patch whose
// predecessor lives on a different yarn than the atom itself — a same-yarn
// predecessor can always be found by walking the weave directly, so
// memoizing it would be pure overhead.
//
// All atoms in a single patch share one yarn and occupy consecutive
// offsets, so processing them in ascending offset order (rather than the
// order their chains happen to appear on the wire) guarantees that each
// atom's memodict lookup sees every earlier atom on its own yarn that this
// same patch already introduced — mirroring how an author accumulates
// awareness while typing.
func (w *Weave) populateMemodict(patch *Patch) {
	var atoms []Atom
	for _, c := range patch.Chains {
		atoms = append(atoms, c.Atoms...)
	}
	sort.Slice(atoms, func(i, j int) bool { return atoms[i].ID.Offset() < atoms[j].ID.Offset() })
	for _, a := range atoms {
		if a.Pred != 0 && a.Pred.Yarn() != a.ID.Yarn() {
			w.Memodict.Add(a.ID, w.Memodict.Pull(a.ID, a.Pred))
		}
	}
}

// buildIndexes groups patch's chains by where they attach to the existing
// weave:
//   - a deletion chain is decomposed atom by atom, since each tombstone
//     independently names its own target;
//   - a save-awareness chain is always anchored at the fixed END id,
//     regardless of what each of its atoms independently names;
//   - an insertion chain is anchored as a whole at its head atom's
//     predecessor, since its remaining atoms are a strand continuing from
//     that head.
func (w *Weave) buildIndexes(patch *Patch) (map[AtomID]Atom, map[AtomID][]insRec) {
	deldict := make(map[AtomID]Atom)
	insdict := make(map[AtomID][]insRec)
	for _, c := range patch.Chains {
		switch c.Type {
		case DeletionChain:
			for _, a := range c.Atoms {
				deldict[a.Pred] = a
			}
		case SaveChain:
			insdict[EndID] = append(insdict[EndID], insRec{typ: SaveChain, atoms: c.Atoms})
		default:
			head := c.Atoms[0]
			insdict[head.Pred] = append(insdict[head.Pred], insRec{typ: InsertionChain, atoms: c.Atoms})
		}
	}
	return deldict, insdict
}

// placeInsertion finds where, among the existing children of the atom at
// anchorPos, a new insertion chain rooted at head belongs. Children are
// ordered left-to-right by descending awareness weft: the chain's head_weft
// is compared against each existing right-neighbor's own awareness weft,
// walking rightward one causal block at a time, until either a
// not-yet-covered neighbor turns out less aware than the new chain (insert
// before it) or a neighbor is already covered by the new chain's own
// awareness (insert before it too, since by definition the new chain was
// created after it and everything it's aware of). END always terminates
// this walk: every weft trivially covers END's id (0,2).
func (w *Weave) placeInsertion(anchorPos int, head Atom) int {
	headWeft := w.Memodict.Pull(head.ID, head.Pred)

	j := anchorPos + 1
	for j < w.Len() && w.bodies[j].Pred == w.ids[anchorPos] && w.AtomAt(j).IsDel() {
		j += w.causalBlockLen(j)
	}

	for {
		neighborID := w.ids[j]
		if headWeft.Covers(neighborID) {
			return j
		}
		rWeft := w.Memodict.Pull(neighborID, 0)
		if headWeft.Gt(rWeft) {
			return j
		}
		j += w.causalBlockLen(j)
	}
}

// retry wakes up any parked patches that were waiting on an atom patch just
// introduced. Waking a patch re-enters Apply, which may find it fully
// ready now, still blocked on something else, or — harmlessly — a
// duplicate; this is the fixed-point retry the applier's pipeline ends
// with.
func (w *Weave) retry(patch *Patch) {
	for _, c := range patch.Chains {
		for _, a := range c.Atoms {
			for _, p := range w.WaitSet.TakeAllBlockedOn(a.ID) {
				_ = w.Apply(p)
			}
		}
	}
}
